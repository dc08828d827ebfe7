package main

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"parle/internal/assistant"
	"parle/internal/config"
	"parle/internal/devices"
	"parle/internal/setup"
	"parle/internal/speech"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configFile := cli.StringP("config", "c", "parle.yaml", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the classifier")
	textOnly := cli.BoolP("text", "t", false, "Read commands from the keyboard only")
	cli.Parse()

	if err := setup.Logger(os.Stderr, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

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
	if *textOnly {
		caps.Microphone = false
	}
	log.Info("Boot up - successful", "capabilities", caps.String())

	voice := speech.NewVoice(os.Stdout, dev.Synth(), cfg.Speech.Pause.Duration)
	a := setup.Assistant(cfg, remote, voice)

	var listener speech.Listener = speech.NewTextInput(os.Stdin, os.Stdout)
	if caps.Microphone {
		listener = dev.Listener(listener, os.Stdout)
	}

	// Unblock a pending keyboard read on interrupt.
	go func() {
		<-ctx.Done()
		os.Stdin.Close()
	}()

	voice.Say(assistant.Greeting)

	for ctx.Err() == nil {
		command, err := listener.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("Failed to read command", "err", err)
			break
		}

		if a.Process(ctx, command) == assistant.Stop {
			break
		}
	}

	log.Info("Shutting down")
}
