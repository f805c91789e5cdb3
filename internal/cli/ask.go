package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docubot/internal/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}

	answer, sources, err := svc.Answer(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, answer, sources)
	}

	cmd.Println(answer)
	if len(sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range sources {
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, sources[i].Source, sources[i].Score)
		}
	}
	return nil
}

func outputAskJSON(cmd *cobra.Command, answer string, sources []domain.ScoredRecord) error {
	type jsonSource struct {
		Source string  `json:"source"`
		Score  float64 `json:"score"`
	}
	out := struct {
		Answer  string       `json:"answer"`
		Sources []jsonSource `json:"sources"`
	}{Answer: answer}
	for i := range sources {
		out.Sources = append(out.Sources, jsonSource{Source: sources[i].Source, Score: sources[i].Score})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
