package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/spf13/pflag"

	"parle/internal/assistant"
	"parle/internal/bus"
	"parle/internal/config"
	"parle/internal/devices"
	"parle/internal/host"
	"parle/internal/ipc"
	"parle/internal/setup"
	"parle/internal/speech"
)

var errEmptyArgument = errors.New("missing argument")

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "parle.yaml", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the classifier")
	socketPath := cli.StringP("socket", "s", "", "Control socket path")
	busURL := cli.StringP("bus", "b", "", "Url of the chat bus")
	cli.Parse()

	if err := setup.Logger(os.Stderr, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Info("Booting up")

	if err := setup.Env(*envFile); err != nil {
		log.Error("Failed to load env file", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load config", "path", *configFile, "err", err)
		os.Exit(1)
	}
	if *proxyAddr != "" {
		cfg.Proxy.Socks = *proxyAddr
	}
	if *socketPath != "" {
		cfg.IPC.Socket = *socketPath
	}
	if *busURL != "" {
		cfg.Bus.URL = *busURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote, err := setup.Classifier(cfg)
	if err != nil {
		log.Error("Failed to set up classifier", "err", err)
		os.Exit(1)
	}

	dev := devices.Open(cfg.Speech)
	defer dev.Close()

	caps := dev.Capabilities()
	caps.Classifier = remote.Enabled()

	voice := speech.NewVoice(os.Stdout, dev.Synth(), cfg.Speech.Pause.Duration)
	a := setup.Assistant(cfg, remote, voice)

	hostCfg := host.Config{
		Processor: a,
		Listener:  dev.Listener(speech.NoInput{}, os.Stdout),
	}
	if files := dev.Files(); files != nil {
		hostCfg.Files = files
	}

	var b *bus.Bus
	if cfg.Bus.URL != "" {
		b, err = bus.NewBus(cfg.Bus.URL)
		if err != nil {
			log.Error("Failed to connect to bus", "url", cfg.Bus.URL, "err", err)
			os.Exit(1)
		}
		defer b.Close()

		voice.AddSink(b)
		hostCfg.Chat = b
	}

	h := host.New(ctx, hostCfg)

	if b != nil {
		go func() {
			if err := b.Serve(ctx, h); err != nil {
				log.Error("Bus connection lost", "err", err)
			}
		}()
	}

	srv, err := ipc.StartServer(cfg.IPC.Socket, func(msg ipc.ControlMessage) error {
		return handleControl(h, msg)
	})
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("Boot up - successful", "capabilities", caps.String())
	voice.Say(assistant.Greeting)

	select {
	case <-ctx.Done():
	case <-h.Done():
	}

	log.Info("Shutting down")
	h.Wait()
}

func handleControl(h *host.Host, msg ipc.ControlMessage) error {
	text := strings.TrimSpace(msg.Text)

	switch msg.Cmd {
	case ipc.CmdListen:
		return h.Listen()
	case ipc.CmdSay:
		if text == "" {
			return fmt.Errorf("say: %w", errEmptyArgument)
		}
		h.Submit(text)
	case ipc.CmdOpen:
		if text == "" {
			return fmt.Errorf("open: %w", errEmptyArgument)
		}
		h.Open(text)
	case ipc.CmdTranscribe:
		if text == "" {
			return fmt.Errorf("transcribe: %w", errEmptyArgument)
		}
		return h.TranscribeFile(text)
	case ipc.CmdQuit:
		h.Stop()
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return fmt.Errorf("unknown command %q", msg.Cmd)
	}

	return nil
}
