package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheetwise/sheetwise/internal/ai"
	"github.com/sheetwise/sheetwise/internal/classify"
)

var (
	clsProvider   string
	clsOllamaHost string
	clsOffline    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <instruction>",
	Short: "Classify an instruction as SIMPLE or COMPLEX",
	Long: `Runs the same complexity check transform uses for model routing.
Lexical rules decide most instructions for free; only the ambiguous
remainder triggers one call to the classifier model. --offline restricts
the check to lexical rules.`,
	Example: `  sheetwise classify "remove duplicate rows"
  sheetwise classify "group by region then add a margin column and sort it" --offline`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instruction := strings.Join(args, " ")

		var runtime ai.Runtime
		if !clsOffline {
			client, _, err := buildRuntime(cfg, runtimeOptions{
				ProviderFlag: clsProvider,
				OllamaHost:   clsOllamaHost,
			})
			if err != nil {
				return err
			}
			runtime = client
		}

		cls := classify.New(runtime, cfg.ClassifierModel, 15*time.Second)
		verdict := cls.Classify(cmd.Context(), instruction)
		fmt.Println(verdict)
		if cls.CallCount > 0 {
			fmt.Printf("(resolved by classifier model %s, %d call)\n", cfg.ClassifierModel, cls.CallCount)
		} else {
			fmt.Println("(resolved lexically, no API call)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVar(&clsProvider, "provider", "", "provider for the classifier fallback model")
	classifyCmd.Flags().StringVar(&clsOllamaHost, "ollama-host", "", "override Ollama host")
	classifyCmd.Flags().BoolVar(&clsOffline, "offline", false, "lexical rules only, never call a model")
}
