// walletwire CLI - registers an identity on the relay, sends messages and
// listens for deliveries.
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/walletwire/walletwire/clients/go/walletwire"
)

func main() {
	relayURL := flag.String("relay", envOr("WALLETWIRE_URL", "http://localhost:8080"), "Relay base URL")
	identity := flag.String("identity", "", "Identity to register (defaults to the key's public half)")
	keyB64 := flag.String("key", os.Getenv("WALLETWIRE_KEY"), "Base64 Ed25519 private key seed")
	to := flag.String("to", "", "Recipient identity")
	message := flag.String("message", "", "Message to send; omit to only listen")
	seal := flag.Bool("seal", false, "Seal the payload end-to-end for the recipient")
	sign := flag.Bool("sign", false, "Sign the registration (requires -key)")
	listen := flag.Duration("listen", 0, "How long to wait for inbound messages after sending")
	flag.Parse()

	var priv ed25519.PrivateKey
	if *keyB64 != "" {
		seed, err := base64.StdEncoding.DecodeString(*keyB64)
		if err != nil || len(seed) != ed25519.SeedSize {
			exitf("invalid private key seed")
		}
		priv = ed25519.NewKeyFromSeed(seed)
	}

	client, err := walletwire.Dial(*relayURL, walletwire.Options{
		Identity:         *identity,
		PrivateKey:       priv,
		SignRegistration: *sign,
		OnMessage: func(m walletwire.Message) {
			ts := time.UnixMilli(m.Timestamp).Format("15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, short(m.From), m.Payload)
		},
		OnPresence: func(p walletwire.Presence) {
			fmt.Printf("-- %s %s\n", short(p.Identity), p.State)
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		},
	})
	if err != nil {
		exitf("dial: %v", err)
	}
	defer client.Close()

	fmt.Printf("registered as %s\n", short(client.Identity()))

	if *message != "" {
		if *to == "" {
			exitf("-to is required when sending")
		}
		if *seal {
			err = client.SendSealed(*to, *message)
		} else {
			err = client.Send(*to, *message)
		}
		if err != nil {
			exitf("send: %v", err)
		}
		fmt.Printf("sent to %s\n", short(*to))
	}

	if *listen > 0 {
		timer := time.After(*listen)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-timer:
		case <-quit:
		}
	} else if *message == "" {
		// Listen-only mode: run until interrupted.
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func short(identity string) string {
	if len(identity) > 12 {
		return identity[:12] + "…"
	}
	return identity
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
