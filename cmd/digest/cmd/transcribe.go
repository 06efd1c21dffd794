package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

var (
	transcribeFile      string
	transcribeStep      int
	transcribeTimecodes bool
)

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeFile, "file", "f", "", "audio file to transcribe")
	transcribeCmd.Flags().IntVarP(&transcribeStep, "step", "s", 0, "emit a timecode header every N segments (default summary.timecodeStep)")
	transcribeCmd.Flags().BoolVar(&transcribeTimecodes, "timecodes", false, "print the timecoded transcription instead of plain text")
	_ = transcribeCmd.MarkFlagRequired("file")
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(transcribeFile)
		if err != nil {
			return err
		}
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.cleanup()

		dispatcher, err := rt.dispatcher(true)
		if err != nil {
			return err
		}
		upload := bot.Upload{
			Name:       filepath.Base(transcribeFile),
			Kind:       bot.AttachmentAudio,
			Data:       data,
			ReceivedAt: time.Now().UTC(),
		}
		if strings.EqualFold(filepath.Ext(transcribeFile), ".ogg") {
			upload.Kind = bot.AttachmentVoice
		}
		result, err := dispatcher.Transcribe(cmd.Context(), bot.SourceCLI, cliConversationID(), upload, transcribeStep)
		if err != nil {
			return err
		}
		out := result.Text
		if transcribeTimecodes {
			out = result.TimecodeText
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(out))
		return nil
	},
}
