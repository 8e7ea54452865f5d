package main

import (
	"log/slog"
	"strings"
	"time"

	"coursegen/internal/assembly"
	"coursegen/internal/config"
	"coursegen/internal/document"
	"coursegen/internal/encoder"
	"coursegen/internal/jobs"
	"coursegen/internal/lesson"
	"coursegen/internal/media/ffprobe"
	"coursegen/internal/notifications"
	"coursegen/internal/pipeline"
	"coursegen/internal/speech"
)

func newDocumentParser(cfg *config.Config) *document.Parser {
	return document.New(cfg.Parser.SectionLevel, cfg.Parser.DefaultTitle)
}

// newSpeechGateway registers the offline backends and, when an endpoint is
// configured, the neural service. The ffmpeg runner joins chunked narration.
func newSpeechGateway(cfg *config.Config, runner encoder.Runner, logger *slog.Logger) *speech.Gateway {
	hint := strings.TrimSpace(cfg.Speech.Backend)
	if hint == "auto" {
		hint = ""
	}
	gateway := speech.NewGateway(speech.Options{
		Hint:              hint,
		WorkDir:           cfg.Paths.WorkDir,
		Timeout:           time.Duration(cfg.Speech.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.Speech.MaxRetries,
		ChunkSize:         cfg.Speech.ChunkSize,
		RequestsPerSecond: cfg.Speech.RequestsPerSecond,
		Burst:             cfg.Speech.Burst,
	}, runner, logger)
	gateway.Register(speech.BackendDraft, speech.NewDraft(runner))
	gateway.Register(speech.BackendMock, speech.Mock{})
	if strings.TrimSpace(cfg.Speech.Endpoint) != "" {
		gateway.Register(speech.BackendNeural, speech.NewNeural(speech.NeuralConfig{
			Endpoint: cfg.Speech.Endpoint,
			APIKey:   cfg.Speech.APIKey,
		}))
	}
	return gateway
}

// newGenerator wires the parser, speech gateway, assembler and lesson
// builder into a generator that journals to store.
func newGenerator(cfg *config.Config, tracker *jobs.Tracker, store *jobs.Store, logger *slog.Logger) *pipeline.Generator {
	runner := encoder.NewExecRunner(cfg.Encoder.FFmpegBinary, time.Duration(cfg.Encoder.TimeoutSeconds)*time.Second)
	gateway := newSpeechGateway(cfg, runner, logger)
	assembler := assembly.New(runner, ffprobe.Prober{Binary: cfg.Encoder.FFprobeBinary}, assembly.Options{
		FontFile:    cfg.Encoder.FontFile,
		MusicFile:   cfg.Encoder.MusicFile,
		MusicVolume: cfg.Encoder.MusicVolume,
	}, logger)
	builder := lesson.NewBuilder(gateway, assembler, cfg.Paths.WorkDir, logger)

	options := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithNotifier(notifications.NewService(cfg)),
	}
	if store != nil {
		options = append(options, pipeline.WithJournal(store))
	}
	return pipeline.New(tracker, newDocumentParser(cfg), builder, pipeline.OptionsFromConfig(cfg), options...)
}
