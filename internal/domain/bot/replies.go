package bot

import (
	"fmt"

	apperrors "github.com/yanqian/digestbot/pkg/errors"
)

const (
	optionTranscribe             = "Transcript audio"
	optionSummarize              = "Summarize text"
	optionTranscribeAndSummarize = "Transcript & summarize"

	replyGreeting         = "Hi! What to do?"
	replyUnknownOption    = "I don't know this option"
	replySendAudio        = "Send an audio or voice message"
	replySendText         = "Paste the text or send the document"
	replyWrongInput       = "<b>Wrong input type</b>"
	replyTranscribing     = "Transcription of <b>audio</b> (can take a minute):"
	replyExtractingTopics = "Extracting main topics (can take a minute):"
	replyLoading          = "Loading..."
	replySummaryTooLarge  = "Summary is to large, sending document instead:"
	replyTranscriptLarge  = "Transcription is to large, sending document instead:"

	keyTimecodeTranscript = "documents/timecode_transcription.txt"
	keySummary            = "documents/summary.txt"
	keyTranscript         = "documents/transcription.txt"
)

// MenuOptions lists the keyboard labels in display order.
func MenuOptions() []string {
	return []string{optionTranscribe, optionSummarize, optionTranscribeAndSummarize}
}

// failureReply renders the user-facing message for a failed flow.
func failureReply(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidInput:
		return "[!] error - nothing to summarize"
	case apperrors.CodeTranscriptionFailure:
		return fmt.Sprintf("[!] error - transcription failed: %v", err)
	case apperrors.CodeSummarizationFailure:
		return fmt.Sprintf("[!] error - summarization failed: %v", err)
	case apperrors.CodeIOFailure:
		return fmt.Sprintf("[!] error - file handling failed: %v", err)
	default:
		return fmt.Sprintf("[!] error - %v", err)
	}
}
