package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"

	gws "github.com/gorilla/websocket"

	"github.com/hyuricane/redchat/internal/websocket"
)

var (
	addr     = flag.String("addr", "localhost:8080", "chat gateway address")
	room     = flag.String("room", "lobby", "room to join")
	password = flag.String("password", "", "room password")
)

func main() {
	flag.Parse()

	username := getUsername()
	conn := connectWebSocket(username)
	defer conn.Close()

	// OS interrupt signals
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Start goroutine to listen for incoming frames
	done := make(chan struct{})
	go readFrames(conn, done)

	// Join the room right away; the gateway replays recent history.
	send(conn, websocket.Frame{
		Type:     websocket.FrameJoin,
		Room:     *room,
		Password: *password,
	})

	fmt.Println("Write messages (Enter to send, /history, /leave, /quit):")
	writeFrames(conn, interrupt, done)
}

func getUsername() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your username: ")
	scanner.Scan()
	return scanner.Text()
}

func connectWebSocket(username string) *gws.Conn {
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	q := u.Query()
	q.Set("username", username)
	u.RawQuery = q.Encode()
	log.Printf("Connecting to %s", u.String())

	conn, _, err := gws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to chat gateway: %v", err)
	}
	log.Println("Connected.")
	return conn
}

func send(conn *gws.Conn, frame websocket.Frame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("Error sending frame: %v", err)
	}
}

func readFrames(conn *gws.Conn, done chan struct{}) {
	defer close(done)
	for {
		var frame websocket.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			log.Printf("Error reading frame: %v", err)
			return
		}

		switch frame.Type {
		case websocket.FrameJoined:
			fmt.Printf("\n* joined %s (members: %s)\n", frame.Room, frame.Data)
		case websocket.FrameError:
			fmt.Printf("\n! %s\n", frame.Data)
		case websocket.FrameHistory:
			fmt.Printf("  [history] %s: %s\n", frameSender(frame), frame.Data)
		default:
			fmt.Printf("\n%s: %s\n", frameSender(frame), frame.Data)
		}
	}
}

func frameSender(frame websocket.Frame) string {
	if frame.User != nil && frame.User.Name != "" {
		return frame.User.Name
	}
	return "unknown"
}

func writeFrames(conn *gws.Conn, interrupt chan os.Signal, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		default:
			if !scanner.Scan() {
				return
			}
			content := scanner.Text()
			if content == "" {
				continue
			}

			switch {
			case content == "/quit":
				send(conn, websocket.Frame{Type: websocket.FrameLeave, Room: *room})
				return
			case content == "/leave":
				send(conn, websocket.Frame{Type: websocket.FrameLeave, Room: *room})
			case content == "/history":
				send(conn, websocket.Frame{Type: websocket.FrameHistory, Room: *room})
			case strings.HasPrefix(content, "/"):
				fmt.Printf("unknown command %s\n", content)
			default:
				send(conn, websocket.Frame{
					Type:     websocket.FrameMessage,
					Room:     *room,
					Data:     content,
					Password: *password,
				})
				fmt.Printf("[Sent] %s\n", content)
			}
		}
	}
}
