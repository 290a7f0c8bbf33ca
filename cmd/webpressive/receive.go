package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WebPressive/webpressive.github.io/internal/protocol"
	"github.com/WebPressive/webpressive.github.io/internal/services"
	"github.com/WebPressive/webpressive.github.io/internal/session"
)

func newReceiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Mirror a running presenter and log every state it sends",
		Args:  cobra.NoArgs,
		RunE:  runReceive,
	}
	cmd.Flags().String("url", "ws://localhost:8080/ws/"+protocol.DefaultTopic, "Sync topic websocket URL")
	cmd.Flags().String("container", "1920x1080", "Receiving display size, WIDTHxHEIGHT")
	cmd.Flags().Bool("liveness", true, "Register as the presenter's receiver so it enters dual-screen mode")
	return cmd
}

func runReceive(cmd *cobra.Command, _ []string) error {
	url, _ := cmd.Flags().GetString("url")
	containerFlag, _ := cmd.Flags().GetString("container")
	liveness, _ := cmd.Flags().GetBool("liveness")
	jsonMode, _ := cmd.Flags().GetBool("json")

	container, err := parseSize(containerFlag)
	if err != nil {
		return err
	}
	if liveness {
		url = withReceiverRole(url)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := services.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer port.Close()

	out := cmd.OutOrStdout()
	var receiver *session.Receiver
	receiver = session.NewReceiver(port, session.ReceiverOptions{
		OnUpdate: func(msg protocol.Message) {
			switch m := msg.(type) {
			case protocol.SyncInit:
				log.Printf("Synced %d slides", len(m.Slides))
			case protocol.StateUpdate:
				if jsonMode {
					writeJSON(out, receiver.View())
					return
				}
				fmt.Fprintf(out, "slide %d/%d mode=%s zoom=%.2f pan=(%.0f,%.0f) spotlight=%t pointer=%t\n",
					m.Index+1, len(receiver.Slides()), m.Mode, m.Viewport.ZoomLevel,
					m.Viewport.PanX, m.Viewport.PanY, m.SpotlightOn, m.PointerOn)
			}
		},
	})
	defer receiver.Close()
	receiver.SetContainer(container)

	log.Printf("Receiving from %s", url)
	err = receiver.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, protocol.ErrClosed) {
		return fmt.Errorf("presenter connection closed")
	}
	return err
}

func withReceiverRole(url string) string {
	if strings.Contains(url, "?") {
		return url + "&role=receiver"
	}
	return url + "?role=receiver"
}
