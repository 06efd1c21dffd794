package bot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/domain/conversation"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/internal/domain/transcript"
	"github.com/yanqian/digestbot/internal/infra/convstore"
	apperrors "github.com/yanqian/digestbot/pkg/errors"
)

const chatID = "telegram:7"

func TestStartShowsMenuAndResets(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ch := &stubChannel{}

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Summarize text"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), bot.Message{ConversationID: chatID, Command: "start"}, ch))

	require.Equal(t, "Hi! What to do?", ch.menuText)
	require.Equal(t, []string{"Transcript audio", "Summarize text", "Transcript & summarize"}, ch.menuOptions)

	current, err := h.machine.Current(context.Background(), chatID)
	require.NoError(t, err)
	require.Equal(t, conversation.StateIdle, current.State)
}

func TestMenuSelection(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantReply string
		wantState conversation.State
	}{
		{name: "transcribe", text: "Transcript audio", wantReply: "Send an audio or voice message", wantState: conversation.StateAwaitingAudio},
		{name: "summarize", text: "Summarize text", wantReply: "Paste the text or send the document", wantState: conversation.StateAwaitingText},
		{name: "both", text: "Transcript & summarize", wantReply: "Send an audio or voice message", wantState: conversation.StateAwaitingAudio},
		{name: "unknown", text: "make coffee", wantReply: "I don't know this option", wantState: conversation.StateIdle},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			ch := &stubChannel{}

			require.NoError(t, h.svc.Handle(context.Background(), textMessage(tt.text), ch))
			require.Equal(t, []string{tt.wantReply}, ch.texts)

			current, err := h.machine.Current(context.Background(), chatID)
			require.NoError(t, err)
			require.Equal(t, tt.wantState, current.State)
		})
	}
}

func TestWrongInputTypeRepliesAndReturnsToIdle(t *testing.T) {
	tests := []struct {
		name    string
		option  string
		message bot.Message
	}{
		{name: "text for transcription", option: "Transcript audio", message: textMessage("hello")},
		{name: "document for transcription", option: "Transcript & summarize", message: attachmentMessage(bot.AttachmentDocument, "notes.txt")},
		{name: "voice for summary", option: "Summarize text", message: attachmentMessage(bot.AttachmentVoice, "")},
		{name: "photo for transcription", option: "Transcript audio", message: attachmentMessage(bot.AttachmentOther, "")},
		{name: "sticker for summary", option: "Summarize text", message: attachmentMessage(bot.AttachmentOther, "")},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			ch := &stubChannel{}

			require.NoError(t, h.svc.Handle(context.Background(), textMessage(tt.option), ch))
			require.NoError(t, h.svc.Handle(context.Background(), tt.message, ch))

			require.Equal(t, []string{"<b>Wrong input type</b>"}, ch.htmls)
			require.Zero(t, h.summarizer.calls)
			require.Zero(t, h.transcriber.calls)

			current, err := h.machine.Current(context.Background(), chatID)
			require.NoError(t, err)
			require.Equal(t, conversation.StateIdle, current.State)

			jobs := h.jobs.snapshot()
			require.Len(t, jobs, 1)
			require.Equal(t, bot.JobRejected, jobs[0].Status)
			require.Equal(t, apperrors.CodeInvalidAttachment, jobs[0].ErrorCode)
		})
	}
}

func TestOtherMediaIgnoredWhileIdle(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ch := &stubChannel{}

	require.NoError(t, h.svc.Handle(context.Background(), attachmentMessage(bot.AttachmentOther, ""), ch))
	require.Empty(t, ch.texts)
	require.Empty(t, ch.htmls)
	require.Empty(t, h.jobs.snapshot())
}

func TestUnnamedAudioKeepsFormatExtension(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		data     []byte
		wantKey  string
	}{
		{name: "mpeg", mimeType: "audio/mpeg", data: []byte("mp3"), wantKey: "audios/1700000000.mp3"},
		{name: "wav with params", mimeType: "audio/wav; codecs=1", data: []byte("wav"), wantKey: "audios/1700000000.wav"},
		{name: "unknown type", mimeType: "", data: []byte("raw"), wantKey: "audios/1700000000.mp3"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.transcriber.result = transcript.Transcript{Text: "hi"}
			ch := &stubChannel{downloads: map[string][]byte{"file-1": tt.data}}
			msg := attachmentMessage(bot.AttachmentAudio, "")
			msg.Attachment.MimeType = tt.mimeType
			msg.ReceivedAt = time.Unix(1700000000, 0)

			require.NoError(t, h.svc.Handle(context.Background(), textMessage("Transcript audio"), ch))
			require.NoError(t, h.svc.Handle(context.Background(), msg, ch))

			require.Equal(t, string(tt.data), string(h.artifacts.get(tt.wantKey)))
			require.Equal(t, "/data/"+tt.wantKey, h.transcriber.lastPath)
		})
	}
}

func TestSummarizeFlowRepliesInline(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.summarizer.summary = "short summary"
	ch := &stubChannel{}

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Summarize text"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), textMessage("a long article"), ch))

	require.Equal(t, []string{"Paste the text or send the document", "short summary"}, ch.texts)
	require.Equal(t, []string{"Extracting main topics (can take a minute):"}, ch.htmls)
	require.Equal(t, summarizer.Request{Text: "a long article"}, h.summarizer.lastReq)
	require.Equal(t, "short summary", string(h.artifacts.get("documents/summary.txt")))

	jobs := h.jobs.snapshot()
	require.Len(t, jobs, 1)
	require.Equal(t, bot.JobSucceeded, jobs[0].Status)
	require.Equal(t, "summarize", jobs[0].Flow)
	require.Equal(t, bot.SourceTelegram, jobs[0].Source)
}

func TestSummarizeFlowSendsDocumentWhenTooLarge(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.summarizer.summary = strings.Repeat("s", 40)
	ch := &stubChannel{}

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Summarize text"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), textMessage("input"), ch))

	require.Equal(t, []string{"Paste the text or send the document", "Summary is to large, sending document instead:"}, ch.texts)
	require.Len(t, ch.documents, 1)
	require.Equal(t, "summary.txt", ch.documents[0].name)
	require.Equal(t, h.summarizer.summary, string(ch.documents[0].data))
}

func TestSummarizeFlowReadsDocument(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ch := &stubChannel{downloads: map[string][]byte{"file-1": []byte("document body")}}

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Summarize text"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), attachmentMessage(bot.AttachmentDocument, "notes.txt"), ch))

	require.Equal(t, "document body", h.summarizer.lastReq.Text)
}

func TestTranscribeFlowStoresAudioAndRepliesTranscript(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.transcriber.result = transcript.Transcript{Text: " hello world"}
	ch := &stubChannel{downloads: map[string][]byte{"file-1": []byte("mp3")}}

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Transcript audio"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), attachmentMessage(bot.AttachmentAudio, "talk.mp3"), ch))

	require.Equal(t, []string{"Transcription of <b>audio</b> (can take a minute):"}, ch.htmls)
	require.Equal(t, []string{"Send an audio or voice message", " hello world"}, ch.texts)
	require.Equal(t, "/data/audios/talk.mp3", h.transcriber.lastPath)
	require.Equal(t, "mp3", string(h.artifacts.get("audios/talk.mp3")))
	require.Zero(t, h.summarizer.calls)
}

func TestTranscribeAndSummarizeFlowUsesTimecodes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.transcriber.result = transcript.Transcript{
		Text: " a b",
		Segments: []transcript.Segment{
			{Start: 0, Text: " a"},
			{Start: 61.5, Text: " b"},
		},
	}
	h.summarizer.summary = "00:00:00 intro"
	ch := &stubChannel{downloads: map[string][]byte{"file-1": []byte("ogg")}}
	voice := attachmentMessage(bot.AttachmentVoice, "")
	voice.ReceivedAt = time.Unix(1700000000, 0)

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Transcript & summarize"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), voice, ch))

	require.Equal(t, []string{"Send an audio or voice message", "Loading...", "00:00:00 intro"}, ch.texts)
	require.Equal(t, "ogg", string(h.artifacts.get("voices/1700000000.ogg")))
	require.Equal(t, "\n00:00:00\n a b", string(h.artifacts.get("documents/timecode_transcription.txt")))
	require.Equal(t, summarizer.Request{Text: "\n00:00:00\n a b", WithTimecode: true}, h.summarizer.lastReq)
}

func TestFlowFailureRepliesWithErrorPrefix(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.summarizer.err = apperrors.Wrap(apperrors.CodeSummarizationFailure, "summarize chunk 1 of 1", errors.New("upstream 500"))
	ch := &stubChannel{}

	require.NoError(t, h.svc.Handle(context.Background(), textMessage("Summarize text"), ch))
	require.NoError(t, h.svc.Handle(context.Background(), textMessage("input"), ch))

	require.Len(t, ch.texts, 2)
	require.True(t, strings.HasPrefix(ch.texts[1], "[!] error - summarization failed"))
	require.Contains(t, ch.texts[1], "upstream 500")

	jobs := h.jobs.snapshot()
	require.Len(t, jobs, 1)
	require.Equal(t, bot.JobFailed, jobs[0].Status)
	require.Equal(t, apperrors.CodeSummarizationFailure, jobs[0].ErrorCode)
}

func TestTranscribeForDirectCallers(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.transcriber.result = transcript.Transcript{
		Text:     " one two",
		Language: "en",
		Segments: []transcript.Segment{{Start: 0, Text: " one"}, {Start: 3725.9, Text: " two"}},
	}

	result, err := h.svc.Transcribe(context.Background(), bot.SourceHTTP, "http:127.0.0.1", bot.Upload{
		Name: "../../etc/clip.wav",
		Kind: bot.AttachmentAudio,
		Data: []byte("wav"),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, "\n00:00:00\n one\n01:02:05\n two", result.TimecodeText)
	require.Equal(t, "en", result.Language)
	require.Equal(t, "wav", string(h.artifacts.get("audios/clip.wav")))

	_, err = h.svc.Transcribe(context.Background(), bot.SourceHTTP, "http:127.0.0.1", bot.Upload{Kind: bot.AttachmentAudio}, 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidAttachment))
}

func TestSummarizeForDirectCallersRecordsJob(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.summarizer.summary = "ok"

	resp, err := h.svc.Summarize(context.Background(), bot.SourceCLI, "cli", summarizer.Request{Text: "some words"})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Summary)

	jobs := h.jobs.snapshot()
	require.Len(t, jobs, 1)
	require.Equal(t, bot.SourceCLI, jobs[0].Source)
	require.Equal(t, 10, jobs[0].InputChars)
	require.Equal(t, 2, jobs[0].OutputChars)
}

type harness struct {
	svc         bot.Service
	machine     *conversation.Machine
	summarizer  *stubSummarizer
	transcriber *stubTranscriber
	artifacts   *stubArtifacts
	jobs        *stubJobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		machine:     conversation.NewMachine(convstore.NewMemoryStore(), time.Hour, logger),
		summarizer:  &stubSummarizer{summary: "summary"},
		transcriber: &stubTranscriber{},
		artifacts:   &stubArtifacts{root: "/data", files: map[string][]byte{}},
		jobs:        &stubJobs{},
	}
	h.svc = bot.NewService(bot.Config{MessageLimit: 30, TimecodeStep: 5}, h.machine, h.summarizer, h.transcriber, h.artifacts, h.jobs, nil, logger)
	return h
}

func textMessage(text string) bot.Message {
	return bot.Message{ConversationID: chatID, Source: bot.SourceTelegram, Text: text}
}

func attachmentMessage(kind bot.AttachmentKind, name string) bot.Message {
	return bot.Message{
		ConversationID: chatID,
		Source:         bot.SourceTelegram,
		Attachment:     &bot.Attachment{Kind: kind, FileID: "file-1", FileName: name},
	}
}

type sentDocument struct {
	name string
	data []byte
}

type stubChannel struct {
	texts       []string
	htmls       []string
	menuText    string
	menuOptions []string
	documents   []sentDocument
	downloads   map[string][]byte
}

func (c *stubChannel) SendText(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func (c *stubChannel) SendHTML(_ context.Context, html string) error {
	c.htmls = append(c.htmls, html)
	return nil
}

func (c *stubChannel) SendMenu(_ context.Context, text string, options []string) error {
	c.menuText = text
	c.menuOptions = options
	return nil
}

func (c *stubChannel) SendDocument(_ context.Context, name string, data []byte) error {
	c.documents = append(c.documents, sentDocument{name: name, data: data})
	return nil
}

func (c *stubChannel) Download(_ context.Context, attachment bot.Attachment) ([]byte, error) {
	data, ok := c.downloads[attachment.FileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

type stubSummarizer struct {
	summary string
	err     error
	calls   int
	lastReq summarizer.Request
}

func (s *stubSummarizer) Summarize(_ context.Context, req summarizer.Request) (summarizer.Response, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return summarizer.Response{}, s.err
	}
	return summarizer.Response{Summary: s.summary, Chunks: 1, ModelCalls: 1}, nil
}

type stubTranscriber struct {
	result   transcript.Transcript
	calls    int
	lastPath string
}

func (s *stubTranscriber) Transcribe(_ context.Context, path string) (transcript.Transcript, error) {
	s.calls++
	s.lastPath = path
	return s.result, nil
}

type stubArtifacts struct {
	mu    sync.Mutex
	root  string
	files map[string][]byte
}

func (s *stubArtifacts) Put(_ context.Context, key string, data []byte, mimeType string) (bot.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return bot.Artifact{Key: key, Path: s.root + "/" + key, Size: int64(len(data)), MimeType: mimeType}, nil
}

func (s *stubArtifacts) get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[key]
}

type stubJobs struct {
	mu   sync.Mutex
	jobs []bot.Job
}

func (s *stubJobs) Save(_ context.Context, job bot.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubJobs) ListRecent(_ context.Context, limit int) ([]bot.Job, error) {
	return s.snapshot(), nil
}

func (s *stubJobs) snapshot() []bot.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bot.Job(nil), s.jobs...)
}
