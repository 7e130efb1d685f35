package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheetwise/sheetwise/internal/plan"
	"github.com/sheetwise/sheetwise/internal/retrieval"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "Manage the few-shot example store used during planning",
	Example: `  sheetwise examples add -i "remove duplicate rows" --plan-file dedupe.json
  sheetwise examples list
  sheetwise examples embed`,
}

var (
	exAddInstruction string
	exAddPlanFile    string
	exAddPlan        string
)

var examplesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an instruction/plan pair to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(exAddInstruction) == "" {
			return fmt.Errorf("--instruction is required")
		}
		planJSON := exAddPlan
		if exAddPlanFile != "" {
			b, err := os.ReadFile(exAddPlanFile)
			if err != nil {
				return fmt.Errorf("read plan file: %w", err)
			}
			planJSON = string(b)
		}
		if strings.TrimSpace(planJSON) == "" {
			return fmt.Errorf("provide the plan via --plan or --plan-file")
		}
		// Only known-good plans enter the store.
		p, err := plan.Parse(planJSON)
		if err != nil {
			return fmt.Errorf("plan does not parse: %w", err)
		}
		if err := plan.Validate(p); err != nil {
			return fmt.Errorf("plan does not validate: %w", err)
		}

		store, err := retrieval.Open(cfg.ExamplesDir)
		if err != nil {
			return err
		}
		before := len(store.Examples)
		ex := store.Add(exAddInstruction, planJSON)
		if len(store.Examples) == before {
			fmt.Printf("Already stored as %s\n", ex.ID)
			return nil
		}
		if err := store.Save(); err != nil {
			return err
		}
		fmt.Printf("Added %s (%d example(s) total). Run 'sheetwise examples embed' to index it.\n", ex.ID, len(store.Examples))
		return nil
	},
}

var examplesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := retrieval.Open(cfg.ExamplesDir)
		if err != nil {
			return err
		}
		if len(store.Examples) == 0 {
			fmt.Println("No examples stored. Add one with 'sheetwise examples add'.")
			return nil
		}
		embedded := 0
		for _, ex := range store.Examples {
			marker := " "
			if len(ex.Vector) > 0 {
				marker = "*"
				embedded++
			}
			instr := ex.Instruction
			if len(instr) > 72 {
				instr = instr[:69] + "..."
			}
			fmt.Printf("%s %s  %s\n", marker, ex.ID, instr)
		}
		fmt.Printf("%d example(s), %d embedded", len(store.Examples), embedded)
		if store.Meta.EmbedModel != "" {
			fmt.Printf(" (model %s)", store.Meta.EmbedModel)
		}
		fmt.Println()
		return nil
	},
}

var exEmbedOllamaHost string

var examplesEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embedding vectors for stored examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := retrieval.Open(cfg.ExamplesDir)
		if err != nil {
			return err
		}
		if len(store.Examples) == 0 {
			fmt.Println("No examples stored; nothing to embed.")
			return nil
		}
		emb, provider, model := buildEmbedder(cfg, exEmbedOllamaHost)
		if emb == nil {
			return fmt.Errorf("no embedder available: set OPENROUTER_API_KEY or configure embedding_provider ollama")
		}
		if err := store.Embed(cmd.Context(), emb, provider, model); err != nil {
			return friendlyAIError(err, provider, model)
		}
		if err := store.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Embedded %d example(s) with %s\n", len(store.Examples), model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
	examplesCmd.AddCommand(examplesAddCmd)
	examplesCmd.AddCommand(examplesListCmd)
	examplesCmd.AddCommand(examplesEmbedCmd)
	examplesAddCmd.Flags().StringVarP(&exAddInstruction, "instruction", "i", "", "the instruction text")
	examplesAddCmd.Flags().StringVar(&exAddPlanFile, "plan-file", "", "path to the known-good plan JSON")
	examplesAddCmd.Flags().StringVar(&exAddPlan, "plan", "", "known-good plan JSON inline")
	examplesEmbedCmd.Flags().StringVar(&exEmbedOllamaHost, "ollama-host", "", "override Ollama host")
}
