package bot

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/yanqian/digestbot/internal/domain/conversation"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
	"github.com/yanqian/digestbot/internal/domain/transcript"
	apperrors "github.com/yanqian/digestbot/pkg/errors"
	"github.com/yanqian/digestbot/pkg/metrics"
	"github.com/yanqian/digestbot/pkg/util"
)

// Service routes chat messages through the menu and the three flows, and
// exposes the same flows to callers that are not chat conversations.
type Service interface {
	Handle(ctx context.Context, msg Message, ch Channel) error
	Summarize(ctx context.Context, source Source, conversationID string, req summarizer.Request) (summarizer.Response, error)
	Transcribe(ctx context.Context, source Source, conversationID string, upload Upload, step int) (TranscriptionResult, error)
}

type service struct {
	cfg         Config
	machine     *conversation.Machine
	summarizer  summarizer.Service
	transcriber transcript.Transcriber
	artifacts   ArtifactStore
	jobs        JobRepository
	recorder    *metrics.Recorder
	now         util.Clock
	logger      *slog.Logger
}

// NewService wires the dispatcher.
func NewService(
	cfg Config,
	machine *conversation.Machine,
	summarizerSvc summarizer.Service,
	transcriber transcript.Transcriber,
	artifacts ArtifactStore,
	jobs JobRepository,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) Service {
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = summarizer.DefaultMessageLimit
	}
	if cfg.TimecodeStep <= 0 {
		cfg.TimecodeStep = 5
	}
	return &service{
		cfg:         cfg,
		machine:     machine,
		summarizer:  summarizerSvc,
		transcriber: transcriber,
		artifacts:   artifacts,
		jobs:        jobs,
		recorder:    recorder,
		now:         util.NowUTC,
		logger:      logger.With("component", "bot.service"),
	}
}

func (s *service) Handle(ctx context.Context, msg Message, ch Channel) error {
	switch msg.Command {
	case "start", "help":
		if _, err := s.machine.Fire(ctx, msg.ConversationID, conversation.EventReset); err != nil {
			return apperrors.Wrap(apperrors.CodeIOFailure, "reset conversation", err)
		}
		return ch.SendMenu(ctx, replyGreeting, MenuOptions())
	}

	session, err := s.machine.Current(ctx, msg.ConversationID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "load conversation", err)
	}
	if session.State == conversation.StateIdle {
		return s.selectFlow(ctx, msg, ch)
	}

	// The awaited input is consumed whatever the flow outcome.
	if _, err := s.machine.Fire(ctx, msg.ConversationID, conversation.EventInputConsumed); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "advance conversation", err)
	}
	return s.runFlow(ctx, session.Flow, msg, ch)
}

func (s *service) selectFlow(ctx context.Context, msg Message, ch Channel) error {
	if msg.Attachment != nil || msg.Text == "" {
		s.logger.Debug("ignoring non-text message while idle", "conversation", msg.ConversationID)
		return nil
	}

	var (
		event  conversation.Event
		prompt string
	)
	switch msg.Text {
	case optionTranscribe:
		event, prompt = conversation.EventSelectTranscribe, replySendAudio
	case optionSummarize:
		event, prompt = conversation.EventSelectSummarize, replySendText
	case optionTranscribeAndSummarize:
		event, prompt = conversation.EventSelectTranscribeAndSummarize, replySendAudio
	default:
		return ch.SendText(ctx, replyUnknownOption)
	}

	if _, err := s.machine.Fire(ctx, msg.ConversationID, event); err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "select flow", err)
	}
	return ch.SendText(ctx, prompt)
}

func (s *service) runFlow(ctx context.Context, flow conversation.Flow, msg Message, ch Channel) error {
	job := s.startJob(msg.Source, msg.ConversationID, string(flow))

	var err error
	switch flow {
	case conversation.FlowTranscribe:
		err = s.transcribeFlow(ctx, msg, ch, &job)
	case conversation.FlowSummarize:
		err = s.summarizeFlow(ctx, msg, ch, &job)
	case conversation.FlowTranscribeAndSummarize:
		err = s.transcribeAndSummarizeFlow(ctx, msg, ch, &job)
	default:
		err = fmt.Errorf("unknown flow %q", flow)
	}
	s.finishJob(ctx, &job, err)

	if err == nil {
		return nil
	}
	if apperrors.IsCode(err, apperrors.CodeInvalidAttachment) {
		return ch.SendHTML(ctx, replyWrongInput)
	}
	s.logger.Error("flow failed", "conversation", msg.ConversationID, "flow", flow, "code", apperrors.CodeOf(err), "error", err)
	return ch.SendText(ctx, failureReply(err))
}

func (s *service) transcribeFlow(ctx context.Context, msg Message, ch Channel, job *Job) error {
	attachment, err := audioAttachment(msg)
	if err != nil {
		return err
	}
	upload, err := s.download(ctx, msg, attachment, ch)
	if err != nil {
		return err
	}
	if err := send(ch.SendHTML(ctx, replyTranscribing)); err != nil {
		return err
	}

	tr, err := s.transcribeUpload(ctx, upload)
	if err != nil {
		return err
	}
	if strings.TrimSpace(tr.Text) == "" {
		return apperrors.Wrap(apperrors.CodeTranscriptionFailure, "no speech detected", nil)
	}
	job.OutputChars = utf8.RuneCountInString(tr.Text)
	return s.deliver(ctx, ch, tr.Text, keyTranscript, replyTranscriptLarge)
}

func (s *service) summarizeFlow(ctx context.Context, msg Message, ch Channel, job *Job) error {
	text, err := s.readText(ctx, msg, ch)
	if err != nil {
		return err
	}
	if err := send(ch.SendHTML(ctx, replyExtractingTopics)); err != nil {
		return err
	}

	resp, err := s.summarize(ctx, summarizer.Request{Text: text})
	job.InputChars = utf8.RuneCountInString(text)
	job.ModelCalls = resp.ModelCalls
	if err != nil {
		return err
	}
	job.OutputChars = utf8.RuneCountInString(resp.Summary)
	return s.deliver(ctx, ch, resp.Summary, keySummary, replySummaryTooLarge)
}

func (s *service) transcribeAndSummarizeFlow(ctx context.Context, msg Message, ch Channel, job *Job) error {
	attachment, err := audioAttachment(msg)
	if err != nil {
		return err
	}
	if err := send(ch.SendText(ctx, replyLoading)); err != nil {
		return err
	}
	upload, err := s.download(ctx, msg, attachment, ch)
	if err != nil {
		return err
	}

	tr, err := s.transcribeUpload(ctx, upload)
	if err != nil {
		return err
	}
	text, err := s.timecodeText(ctx, tr.Segments, s.cfg.TimecodeStep)
	if err != nil {
		return err
	}

	resp, err := s.summarize(ctx, summarizer.Request{Text: text, WithTimecode: true})
	job.InputChars = utf8.RuneCountInString(text)
	job.ModelCalls = resp.ModelCalls
	if err != nil {
		return err
	}
	job.OutputChars = utf8.RuneCountInString(resp.Summary)
	return s.deliver(ctx, ch, resp.Summary, keySummary, replySummaryTooLarge)
}

func (s *service) Summarize(ctx context.Context, source Source, conversationID string, req summarizer.Request) (summarizer.Response, error) {
	job := s.startJob(source, conversationID, string(conversation.FlowSummarize))
	resp, err := s.summarize(ctx, req)
	job.InputChars = utf8.RuneCountInString(req.Text)
	job.OutputChars = utf8.RuneCountInString(resp.Summary)
	job.ModelCalls = resp.ModelCalls
	s.finishJob(ctx, &job, err)
	return resp, err
}

func (s *service) Transcribe(ctx context.Context, source Source, conversationID string, upload Upload, step int) (TranscriptionResult, error) {
	job := s.startJob(source, conversationID, string(conversation.FlowTranscribe))
	result, err := s.transcribeWithTimecodes(ctx, upload, step)
	job.OutputChars = utf8.RuneCountInString(result.Text)
	s.finishJob(ctx, &job, err)
	return result, err
}

func (s *service) transcribeWithTimecodes(ctx context.Context, upload Upload, step int) (TranscriptionResult, error) {
	if len(upload.Data) == 0 {
		return TranscriptionResult{}, apperrors.Wrap(apperrors.CodeInvalidAttachment, "audio file is empty", nil)
	}
	if step <= 0 {
		step = s.cfg.TimecodeStep
	}
	tr, err := s.transcribeUpload(ctx, upload)
	if err != nil {
		return TranscriptionResult{}, err
	}
	text, err := s.timecodeText(ctx, tr.Segments, step)
	if err != nil {
		return TranscriptionResult{}, err
	}
	return TranscriptionResult{
		Text:         tr.Text,
		Language:     tr.Language,
		Duration:     tr.Duration,
		Segments:     tr.Segments,
		TimecodeText: text,
	}, nil
}

func (s *service) summarize(ctx context.Context, req summarizer.Request) (summarizer.Response, error) {
	resp, err := s.summarizer.Summarize(ctx, req)
	if err != nil {
		return resp, err
	}
	if _, err := s.artifacts.Put(ctx, keySummary, []byte(resp.Summary), "text/plain"); err != nil {
		return resp, apperrors.Wrap(apperrors.CodeIOFailure, "store summary", err)
	}
	return resp, nil
}

func (s *service) transcribeUpload(ctx context.Context, upload Upload) (transcript.Transcript, error) {
	artifact, err := s.artifacts.Put(ctx, uploadKey(upload), upload.Data, "")
	if err != nil {
		return transcript.Transcript{}, apperrors.Wrap(apperrors.CodeIOFailure, "store audio", err)
	}
	tr, err := s.transcriber.Transcribe(ctx, artifact.Path)
	if err != nil {
		if apperrors.CodeOf(err) == "" {
			err = apperrors.Wrap(apperrors.CodeTranscriptionFailure, "transcribe audio", err)
		}
		return transcript.Transcript{}, err
	}
	s.logger.Info("transcription completed", "key", artifact.Key, "segments", len(tr.Segments), "language", tr.Language)
	return tr, nil
}

func (s *service) timecodeText(ctx context.Context, segments []transcript.Segment, step int) (string, error) {
	text := transcript.FormatTimecodes(segments, step)
	if _, err := s.artifacts.Put(ctx, keyTimecodeTranscript, []byte(text), "text/plain"); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "store timecode transcription", err)
	}
	return text, nil
}

func (s *service) readText(ctx context.Context, msg Message, ch Channel) (string, error) {
	if msg.Attachment == nil {
		if msg.Text == "" {
			return "", apperrors.Wrap(apperrors.CodeInvalidAttachment, "expected text or document", nil)
		}
		return msg.Text, nil
	}
	if msg.Attachment.Kind != AttachmentDocument {
		return "", apperrors.Wrap(apperrors.CodeInvalidAttachment, fmt.Sprintf("expected text or document, got %s", msg.Attachment.Kind), nil)
	}
	data, err := ch.Download(ctx, *msg.Attachment)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "download document", err)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func (s *service) download(ctx context.Context, msg Message, attachment Attachment, ch Channel) (Upload, error) {
	data, err := ch.Download(ctx, attachment)
	if err != nil {
		return Upload{}, apperrors.Wrap(apperrors.CodeIOFailure, "download audio", err)
	}
	return Upload{
		Name:       attachment.FileName,
		Kind:       attachment.Kind,
		MimeType:   attachment.MimeType,
		Data:       data,
		ReceivedAt: msg.ReceivedAt,
	}, nil
}

// deliver replies inline while text fits one message, otherwise as a document.
func (s *service) deliver(ctx context.Context, ch Channel, text, key, notice string) error {
	if utf8.RuneCountInString(text) < s.cfg.MessageLimit {
		return send(ch.SendText(ctx, text))
	}
	if key != keySummary {
		if _, err := s.artifacts.Put(ctx, key, []byte(text), "text/plain"); err != nil {
			return apperrors.Wrap(apperrors.CodeIOFailure, "store document", err)
		}
	}
	if err := send(ch.SendText(ctx, notice)); err != nil {
		return err
	}
	return send(ch.SendDocument(ctx, path.Base(key), []byte(text)))
}

func (s *service) startJob(source Source, conversationID, flow string) Job {
	return Job{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Source:         source,
		Flow:           flow,
		StartedAt:      s.now(),
	}
}

func (s *service) finishJob(ctx context.Context, job *Job, err error) {
	job.FinishedAt = s.now()
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
		job.Status = JobSucceeded
	case apperrors.IsCode(err, apperrors.CodeInvalidAttachment), apperrors.IsCode(err, apperrors.CodeInvalidInput):
		job.Status = JobRejected
		job.ErrorCode = apperrors.CodeOf(err)
		outcome = metrics.OutcomeRejected
	default:
		job.Status = JobFailed
		job.ErrorCode = apperrors.CodeOf(err)
		outcome = metrics.OutcomeFailure
	}
	s.recorder.ObserveFlow(string(job.Source), job.Flow, outcome)

	if s.jobs == nil {
		return
	}
	if saveErr := s.jobs.Save(context.WithoutCancel(ctx), *job); saveErr != nil {
		s.logger.Warn("failed to record job", "job", job.ID, "error", saveErr)
	}
}

func audioAttachment(msg Message) (Attachment, error) {
	if msg.Attachment == nil {
		return Attachment{}, apperrors.Wrap(apperrors.CodeInvalidAttachment, "expected audio or voice, got text", nil)
	}
	switch msg.Attachment.Kind {
	case AttachmentAudio, AttachmentVoice:
		return *msg.Attachment, nil
	default:
		return Attachment{}, apperrors.Wrap(apperrors.CodeInvalidAttachment, fmt.Sprintf("expected audio or voice, got %s", msg.Attachment.Kind), nil)
	}
}

// uploadKey places audio under audios/<name> and voice notes under voices/<unix date>.ogg.
// Unnamed audio gets an extension from its MIME type so the transcriber can tell the format.
func uploadKey(upload Upload) string {
	if upload.Kind == AttachmentVoice {
		return fmt.Sprintf("voices/%d.ogg", upload.ReceivedAt.Unix())
	}
	name := path.Base(upload.Name)
	if name == "." || name == "/" || name == "" {
		name = fmt.Sprintf("%d%s", upload.ReceivedAt.Unix(), audioExtension(upload))
	}
	return "audios/" + name
}

func audioExtension(upload Upload) string {
	if mediaType, _, err := mime.ParseMediaType(upload.MimeType); err == nil {
		if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
			return m.Extension()
		}
	}
	if m := mimetype.Detect(upload.Data); isAudioOrVideo(m.String()) && m.Extension() != "" {
		return m.Extension()
	}
	return ".mp3"
}

func isAudioOrVideo(mediaType string) bool {
	return strings.HasPrefix(mediaType, "audio/") || strings.HasPrefix(mediaType, "video/")
}

func send(err error) error {
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "send reply", err)
	}
	return nil
}
