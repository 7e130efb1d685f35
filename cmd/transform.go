package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sheetwise/sheetwise/internal/ai"
	"github.com/sheetwise/sheetwise/internal/classify"
	"github.com/sheetwise/sheetwise/internal/dataset"
	"github.com/sheetwise/sheetwise/internal/executor"
	"github.com/sheetwise/sheetwise/internal/format"
	"github.com/sheetwise/sheetwise/internal/plan"
	"github.com/sheetwise/sheetwise/internal/retrieval"
	"github.com/sheetwise/sheetwise/internal/sample"
	"github.com/sheetwise/sheetwise/internal/utils"
)

var (
	trInstruction  string
	trOutputPath   string
	trSheetName    string
	trSheetIndex   int
	trDelimiter    string
	trProvider     string
	trOllamaHost   string
	trModel        string
	trSimpleModel  string
	trComplexModel string
	trForceTier    string
	trMaxTokens    int
	trTemp         float64
	trDryRun       bool
	trPrintPrompt  bool
	trPromptLimit  int
	trBudgetLimit  float64
	trQuiet        bool
	trJSON         bool
	trTimeoutSec   int
	trDiffRows     int
	trNoRetrieval  bool
	trTopK         int
	trMinScore     float64
	trSampleRows   int
)

var transformCmd = &cobra.Command{
	Use:   "transform <file>",
	Short: "Apply a natural-language instruction to a CSV or XLSX file",
	Example: `  sheetwise transform sales.csv -i "remove duplicate rows"
  sheetwise transform sales.xlsx --sheet Q3 -i "sort by Revenue descending" -o sorted.csv
  sheetwise transform data.csv -i "highlight cells over 100 in red" --dry-run
  sheetwise transform data.csv -i "group by Region and sum Sales" --force-tier complex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(trInstruction) == "" {
			return fmt.Errorf("--instruction is required")
		}
		if trJSON {
			trQuiet = true
		}

		inputPath := args[0]
		d, err := loadDataset(inputPath)
		if err != nil {
			return err
		}
		if d.NumRows() == 0 {
			return fmt.Errorf("input has a header but no data rows: %s", inputPath)
		}
		before := d.Clone()

		maxRows := cfg.SampleMaxRows
		if trSampleRows > 0 {
			maxRows = trSampleRows
		}
		builder := sample.NewBuilder(maxRows, cfg.SampleMinRows).WithCellCap(cfg.SampleCellCap)
		smp := builder.Build(d)

		runID := uuid.NewString()
		if debug && !trQuiet {
			fmt.Printf("Run ID: %s\n", runID)
		}

		client, providerName, err := buildRuntime(cfg, runtimeOptions{
			ProviderFlag: trProvider,
			OllamaHost:   trOllamaHost,
		})
		if err != nil {
			return err
		}

		// Complexity verdict: explicit tier wins, otherwise classify.
		var verdict classify.Complexity
		classifierCalls := 0
		switch strings.ToLower(trForceTier) {
		case "":
			cls := classify.New(client, cfg.ClassifierModel, 15*time.Second)
			verdict = cls.Classify(cmd.Context(), trInstruction)
			classifierCalls = cls.CallCount
		case "simple":
			verdict = classify.Simple
		case "complex":
			verdict = classify.Complex
		default:
			return fmt.Errorf("invalid --force-tier: %s (use simple|complex)", trForceTier)
		}
		if !trQuiet {
			fmt.Printf("Complexity: %s\n", verdict)
		}

		examples := retrieveExamples(cmd.Context(), trInstruction)

		columns := d.ColumnNames()
		promptRows := builder.PromptRows(smp)

		model, maxTokens, temp := tierSettings(verdict, providerName)

		prompt := plan.BuildPrompt(trInstruction, columns, promptRows, smp.Explanation, examples)
		promptTokens := utils.CountTokens(prompt)
		if trPromptLimit > 0 && promptTokens > trPromptLimit {
			if !trQuiet {
				fmt.Printf("⚠ Prompt exceeds limit (%d > %d). Truncating before send...\n", promptTokens, trPromptLimit)
			}
			prompt = utils.TruncateToTokenLimit(prompt, trPromptLimit)
			promptTokens = utils.CountTokens(prompt)
		}

		if mi, ok := ai.LookupModel(model); ok {
			if cost, ok := ai.EstimateCostUSD(model, promptTokens, maxTokens); ok {
				if !trQuiet {
					fmt.Printf("Estimated max cost: ~$%.4f (in %.4f/out %.4f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
				}
				if trBudgetLimit > 0 && cost > trBudgetLimit {
					return fmt.Errorf("estimated cost $%.4f exceeds --budget-limit $%.4f", cost, trBudgetLimit)
				}
			}
			if promptTokens+maxTokens > mi.ContextTokens {
				fmt.Fprintf(os.Stderr, "⚠ Warning: prompt (≈%d tokens) + max-tokens (%d) may exceed %s context window (~%d tokens).\n",
					promptTokens, maxTokens, mi.Name, mi.ContextTokens)
			}
		}

		if trDryRun {
			if !trQuiet {
				fmt.Println("--dry-run: no API call will be made. Prompt preview below --")
				fmt.Printf("Model: %s (tier %s, prompt tokens≈%d)\n", model, verdict, promptTokens)
			}
			fmt.Println(prompt)
			return nil
		}
		if trPrintPrompt && !trQuiet {
			fmt.Println("--print-prompt: sending the following prompt --")
			fmt.Println(prompt)
		}

		if !trQuiet {
			fmt.Printf("⚙ Planning with model=%s (prompt tokens≈%d) ...\n", model, promptTokens)
		}

		router := plan.NewRouter(
			plan.Profile{Runtime: client, Model: model, MaxTokens: maxTokens, Temperature: temp},
			plan.Profile{Runtime: client, Model: model, MaxTokens: maxTokens, Temperature: temp},
			planTimeout(cmd.Flags().Changed("timeout-sec")),
		)
		p, err := router.Route(cmd.Context(), plan.Request{
			Instruction: trInstruction,
			Columns:     columns,
			SampleRows:  promptRows,
			Explanation: smp.Explanation,
			Examples:    examples,
		}, verdict)
		if err != nil {
			return friendlyAIError(err, providerName, model)
		}

		exec := executor.New()
		if cfg.ScriptTimeoutSec > 0 {
			exec.ScriptTimeout = time.Duration(cfg.ScriptTimeoutSec) * time.Second
		}
		res := exec.Execute(cmd.Context(), d, p.Operations)
		if !trQuiet {
			for _, line := range res.Summary {
				fmt.Println("  ✓", line)
			}
		}
		if res.Err != nil {
			if len(res.Summary) > 0 {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %d of %d operations applied before failure; output not written.\n",
					len(res.Summary), len(p.Operations))
			}
			return fmt.Errorf("execution failed: %w", res.Err)
		}
		d = res.Data

		var proj *format.Projection
		if p.FormatRule != nil {
			proj, err = format.Project(d, p.FormatRule)
			if err != nil {
				return fmt.Errorf("formatting rule failed: %w", err)
			}
			if !trQuiet {
				describeProjection(proj, p.FormatRule)
			}
		}
		if p.Chart != nil && !trQuiet {
			fmt.Printf("Chart requested: %s (x=%s, y=%s); rendering is left to the output layer.\n",
				p.Chart.Type, p.Chart.X, p.Chart.Y)
		}

		outPath := trOutputPath
		if outPath == "" {
			outPath = defaultOutputPath(inputPath)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := d.WriteCSV(f); err != nil {
			f.Close()
			return fmt.Errorf("write output: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}

		if trJSON {
			return writeTransformJSON(os.Stdout, transformReport{
				RunID:           runID,
				Instruction:     trInstruction,
				Verdict:         string(verdict),
				Model:           model,
				ClassifierCalls: classifierCalls,
				Operations:      res.Summary,
				RowsBefore:      before.NumRows(),
				RowsAfter:       d.NumRows(),
				Output:          outPath,
				Formatting:      proj,
			})
		}

		if !trQuiet {
			fmt.Printf("✓ Wrote %s (%d rows, %d columns)\n", outPath, d.NumRows(), d.NumCols())
			if preview := dataset.DiffPreview(before, d, trDiffRows); preview != "" {
				fmt.Println("\nChanges:")
				fmt.Println(preview)
			}
		}
		return nil
	},
}

// planTimeout resolves the planning deadline: an explicit --timeout-sec flag
// wins, otherwise the configured plan_timeout_sec applies.
func planTimeout(flagSet bool) time.Duration {
	if !flagSet && cfg.PlanTimeoutSec > 0 {
		return time.Duration(cfg.PlanTimeoutSec) * time.Second
	}
	return time.Duration(trTimeoutSec) * time.Second
}

// loadDataset reads CSV or XLSX based on the file extension.
func loadDataset(path string) (*dataset.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return dataset.ReadXLSX(path, trSheetName, trSheetIndex)
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		delim := ','
		if trDelimiter != "" {
			delim = []rune(trDelimiter)[0]
		} else if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delim = '\t'
		}
		return dataset.ReadCSV(f, delim)
	default:
		return nil, fmt.Errorf("unsupported file type: %s (use .csv or .xlsx)", filepath.Ext(path))
	}
}

// tierSettings resolves model, max tokens, and temperature for the verdict,
// honoring flag overrides over config.
func tierSettings(verdict classify.Complexity, providerName string) (string, int, float64) {
	model := cfg.SimpleModel
	maxTokens := cfg.SimpleMaxTokens
	temp := cfg.SimpleTemperature
	if verdict == classify.Complex {
		model = cfg.ComplexModel
		maxTokens = cfg.ComplexMaxTokens
		temp = cfg.ComplexTemperature
	}
	if verdict == classify.Simple && trSimpleModel != "" {
		model = trSimpleModel
	}
	if verdict == classify.Complex && trComplexModel != "" {
		model = trComplexModel
	}
	if trModel != "" {
		model = trModel
	}
	if model == "" {
		tier := ai.TierSimple
		if verdict == classify.Complex {
			tier = ai.TierComplex
		}
		if name, ok := ai.RecommendModel(providerName, tier); ok {
			model = name
		}
	}
	if trMaxTokens > 0 {
		maxTokens = trMaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	if trTemp > 0 {
		temp = trTemp
	}
	return model, maxTokens, temp
}

// retrieveExamples pulls few-shot instruction/plan pairs from the local
// example store. Retrieval failures degrade to no examples, never an error.
func retrieveExamples(ctx context.Context, instruction string) []plan.Example {
	if trNoRetrieval {
		return nil
	}
	store, err := retrieval.Open(cfg.ExamplesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: example store unavailable: %v\n", err)
		return nil
	}
	if len(store.Examples) == 0 {
		return nil
	}
	topK := cfg.RetrievalTopK
	if trTopK > 0 {
		topK = trTopK
	}
	minScore := cfg.RetrievalMinScore
	if trMinScore > 0 {
		minScore = trMinScore
	}

	var hits []retrieval.Example
	if store.Meta.EmbedDim > 0 {
		emb, _, _ := buildEmbedder(cfg, trOllamaHost)
		if emb != nil {
			vecs, err := emb.Embed(ctx, []string{instruction})
			if err == nil && len(vecs) == 1 {
				hits = store.Search(vecs[0], topK, minScore)
			} else if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: query embedding failed, using keyword match: %v\n", err)
			}
		}
	}
	if hits == nil {
		hits = store.SearchKeywords(instruction, topK)
	}

	out := make([]plan.Example, 0, len(hits))
	for _, h := range hits {
		out = append(out, plan.Example{Prompt: h.Instruction, Response: h.Plan})
	}
	return out
}

func describeProjection(proj *format.Projection, rule *plan.FormatRule) {
	if rule.Type == plan.RuleReplaceText {
		fmt.Printf("Replaced %d occurrence(s) of %q across %d column(s).\n",
			proj.ReplacementCount, rule.Text, len(proj.ReplacedColumns))
		return
	}
	style := []string{}
	if proj.BgColor != "" {
		style = append(style, "bg "+proj.BgColor)
	}
	if proj.FontColor != "" {
		style = append(style, "font "+proj.FontColor)
	}
	if proj.Bold {
		style = append(style, "bold")
	}
	desc := strings.Join(style, ", ")
	if desc == "" {
		desc = "highlight"
	}
	fmt.Printf("Formatting rule (%s) matched %d cell(s): %s\n", rule.Type, len(proj.Cells), desc)
}

func defaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	return base + "_transformed.csv"
}

type transformReport struct {
	RunID           string             `json:"run_id"`
	Instruction     string             `json:"instruction"`
	Verdict         string             `json:"verdict"`
	Model           string             `json:"model"`
	ClassifierCalls int                `json:"classifier_calls"`
	Operations      []string           `json:"operations"`
	RowsBefore      int                `json:"rows_before"`
	RowsAfter       int                `json:"rows_after"`
	Output          string             `json:"output"`
	Formatting      *format.Projection `json:"formatting,omitempty"`
}

func writeTransformJSON(w *os.File, r transformReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().StringVarP(&trInstruction, "instruction", "i", "", "natural-language instruction to apply")
	transformCmd.Flags().StringVarP(&trOutputPath, "output", "o", "", "output CSV path (default <input>_transformed.csv)")
	transformCmd.Flags().StringVar(&trSheetName, "sheet", "", "XLSX sheet name (default first sheet)")
	transformCmd.Flags().IntVar(&trSheetIndex, "sheet-index", 0, "XLSX sheet number, 1-based (alternative to --sheet)")
	transformCmd.Flags().StringVar(&trDelimiter, "delimiter", "", "CSV delimiter (default ',' or tab for .tsv)")
	transformCmd.Flags().StringVar(&trProvider, "provider", "", "provider: openrouter|openai|anthropic|google|ollama")
	transformCmd.Flags().StringVar(&trOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	transformCmd.Flags().StringVar(&trModel, "model", "", "override model for both tiers")
	transformCmd.Flags().StringVar(&trSimpleModel, "simple-model", "", "override model for the simple tier")
	transformCmd.Flags().StringVar(&trComplexModel, "complex-model", "", "override model for the complex tier")
	transformCmd.Flags().StringVar(&trForceTier, "force-tier", "", "skip classification: simple|complex")
	transformCmd.Flags().IntVar(&trMaxTokens, "max-tokens", 0, "max tokens for the plan response")
	transformCmd.Flags().Float64Var(&trTemp, "temp", 0, "sampling temperature")
	transformCmd.Flags().BoolVar(&trDryRun, "dry-run", false, "build the prompt and print it without calling the API")
	transformCmd.Flags().BoolVar(&trPrintPrompt, "print-prompt", false, "print the prompt being sent to the API")
	transformCmd.Flags().IntVar(&trPromptLimit, "prompt-limit", 0, "truncate built prompt to this many tokens before sending")
	transformCmd.Flags().Float64Var(&trBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	transformCmd.Flags().BoolVar(&trQuiet, "quiet", false, "suppress non-essential output")
	transformCmd.Flags().BoolVar(&trJSON, "json", false, "emit a JSON report to stdout")
	transformCmd.Flags().IntVar(&trTimeoutSec, "timeout-sec", 90, "plan generation timeout in seconds")
	transformCmd.Flags().IntVar(&trDiffRows, "diff-rows", 8, "max rows shown in the change preview")
	transformCmd.Flags().BoolVar(&trNoRetrieval, "no-retrieval", false, "skip few-shot example retrieval")
	transformCmd.Flags().IntVar(&trTopK, "top-k", 0, "number of few-shot examples to retrieve")
	transformCmd.Flags().Float64Var(&trMinScore, "min-score", 0, "minimum similarity for retrieved examples")
	transformCmd.Flags().IntVar(&trSampleRows, "max-sample-rows", 0, "max rows included in the model sample")
}
