package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/errgroup"

	"aide/internal/assist"
	"aide/internal/audio"
	"aide/internal/bus"
	"aide/internal/chat"
	"aide/internal/config"
	"aide/internal/intent"
	"aide/internal/ipc"
	"aide/internal/listen"
	"aide/internal/monitor"
	"aide/internal/proxy"
	"aide/internal/reminder"
	"aide/internal/speech"
	"aide/internal/store"
	"aide/internal/summary"
	"aide/internal/system"
	"aide/pkg/audioconv"
	"aide/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	dataDir := cli.StringP("data", "d", "", "Data directory (overrides AIDE_DATA_DIR)")
	noVoice := cli.Bool("no-voice", false, "Disable microphone and speech output")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg, err := config.Load()
	if err != nil {
		log.Error("Bad configuration", "err", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	st, err := store.Open(cfg.DataDir)
	switch {
	case errors.Is(err, store.ErrCorrupt):
		log.Error("Memory store is corrupt, refusing to start", "dir", cfg.DataDir, "err", err)
		log.Error("Move or repair the damaged file and restart")
		os.Exit(1)
	case err != nil:
		log.Warn("Memory store unavailable, running without persistence", "dir", cfg.DataDir, "err", err)
	}

	sched, err := reminder.NewScheduler(st, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			log.Error("Reminder data is corrupt, refusing to start", "err", err)
			os.Exit(1)
		}
		log.Error("Failed to reload reminders", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded store", "persistent", st.Persistent(), "reminders", len(sched.Upcoming(0)))

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
	if cfg.SocksProxy != "" {
		httpClient, err := proxy.NewSocksClient(cfg.SocksProxy, 60*time.Second)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", cfg.SocksProxy, "err", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	client := openai.NewClient(opts...)

	cls := intent.NewClassifier(intent.NewModelFallback(client, cfg.Model))
	backend := chat.NewOpenAI(client, cfg.Model)

	orch := assist.New(st, sched, cls, backend, assist.Config{
		MaxHistory:       cfg.MaxHistory,
		ReminderInterval: cfg.ReminderInterval,
		MonitorInterval:  cfg.MonitorInterval,
	})
	orch.SetSystem(system.Launch, system.OpenSearch)
	orch.SetDesktop(system.Desktop{})

	if cfg.MonitorInterval > 0 {
		var emotion monitor.EmotionSampler
		if cfg.EmotionCmd != "" {
			emotion = system.CommandEmotion{Command: cfg.EmotionCmd}
		}
		orch.SetMonitor(monitor.New(st, system.XWindowSampler{}, system.TesseractOCR{}, emotion))
	}

	busSrv := bus.NewServer(orch.Submit)

	player := audio.NewPlayer(cfg.ChimePath)

	var speaker assist.Speaker
	if !*noVoice {
		speaker = speech.NewChain(
			speech.NewOpenAIVoice(client, "tts-1", cfg.Voice, player),
			speech.NewEspeak("en"),
		)
	}
	orch.SetOutputs(speaker, busSrv)

	var (
		listener *listen.Listener
		whisper  *stt.Transcriber
	)
	if !*noVoice && cfg.WhisperModel != "" {
		rec := audio.NewRecorder(audio.DefaultRecorderConfig())
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()

		whisper, err = stt.NewTranscriber(cfg.WhisperModel)
		if err != nil {
			log.Error("Failed to init whisper", "model", cfg.WhisperModel, "err", err)
			os.Exit(1)
		}
		defer whisper.Close()

		lcfg := listen.DefaultConfig()
		lcfg.WakePhrase = cfg.WakePhrase
		listener = listen.New(rec, transcriber{whisper}, lcfg, orch.Submit)
		listener.SetAudio(audio.NewDucker([]string{"aide"}, 20), player)

		log.Debug("Loaded voice front-end", "wake", cfg.WakePhrase)
	} else {
		log.Info("Voice front-end disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ipc.StartServer(ipc.DefaultSocketPath, controlHandler(ctx, orch, sched, st, busSrv, listener, whisper)); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return busSrv.Serve(ctx, cfg.BusAddr) })
	if listener != nil {
		g.Go(func() error { return listener.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Shutting down", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}

// transcriber adapts the whisper bindings to the listener's interface.
type transcriber struct {
	t *stt.Transcriber
}

func (a transcriber) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	return a.t.Transcribe(ctx, pcm, stt.Options{Language: "en"})
}

func controlHandler(ctx context.Context, orch *assist.Orchestrator, sched *reminder.Scheduler, st *store.Store, busSrv *bus.Server, listener *listen.Listener, whisper *stt.Transcriber) ipc.Handler {
	return func(req ipc.Request) ipc.Response {
		switch req.Cmd {
		case ipc.CmdTrigger:
			if listener == nil {
				return ipc.Response{Err: "voice front-end is disabled"}
			}
			listener.Trigger()
			return ipc.Response{OK: true}

		case ipc.CmdPause:
			orch.Pause()
			return ipc.Response{OK: true, Text: "paused"}

		case ipc.CmdResume:
			orch.Resume()
			return ipc.Response{OK: true, Text: "resumed"}

		case ipc.CmdSay:
			if req.Arg == "" {
				return ipc.Response{Err: "say needs text"}
			}
			return ipc.Response{OK: true, Text: orch.HandleOnce(ctx, req.Arg)}

		case ipc.CmdSummary:
			s, err := summary.Generate(st, sched, time.Now())
			if err != nil {
				return ipc.Response{Err: err.Error()}
			}
			text := s.Render()
			busSrv.Publish(bus.KindSummary, text)
			return ipc.Response{OK: true, Text: text}

		case ipc.CmdReminders:
			return ipc.Response{OK: true, Text: renderReminders(sched.Upcoming(0))}

		case ipc.CmdTranscribe:
			if whisper == nil {
				return ipc.Response{Err: "transcription is disabled"}
			}
			pcm, err := audioconv.DecodeFile(req.Arg)
			if err != nil {
				return ipc.Response{Err: err.Error()}
			}
			text, err := whisper.Transcribe(ctx, pcm, stt.Options{Language: "en"})
			if err != nil {
				return ipc.Response{Err: err.Error()}
			}
			orch.Submit(text)
			return ipc.Response{OK: true, Text: text}

		default:
			log.Warn("Unknown command", "cmd", req.Cmd)
			return ipc.Response{Err: fmt.Sprintf("unknown command %q", req.Cmd)}
		}
	}
}

func renderReminders(rs []reminder.Reminder) string {
	if len(rs) == 0 {
		return "no upcoming reminders"
	}
	var b strings.Builder
	for _, r := range rs {
		fmt.Fprintf(&b, "%s  %s", r.FireAt.Format("2006-01-02 15:04"), r.Message)
		if r.Recurrence.Recurring() {
			fmt.Fprintf(&b, "  (%s)", r.Recurrence.Kind)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
