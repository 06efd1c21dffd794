package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
)

var (
	summarizeFile     string
	summarizeTimecode bool
)

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeFile, "file", "f", "", "text file to summarize")
	summarizeCmd.Flags().BoolVarP(&summarizeTimecode, "timecode", "t", false, "input carries timecode headers; keep them in the summary")
	_ = summarizeCmd.MarkFlagRequired("file")
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a text file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(summarizeFile)
		if err != nil {
			return err
		}
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		dispatcher, err := rt.dispatcher(false)
		if err != nil {
			return err
		}
		text := string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
		resp, err := dispatcher.Summarize(cmd.Context(), bot.SourceCLI, cliConversationID(), summarizer.Request{
			Text:         text,
			WithTimecode: summarizeTimecode,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(resp.Summary))
		rt.logger.Info("summary written", "chunks", resp.Chunks, "model_calls", resp.ModelCalls, "resummarized", resp.Resummarized)
		return nil
	},
}
