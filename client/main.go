// A small interactive client for poking at a running server: prints every
// event it receives and turns stdin commands into protocol messages.
//
// Commands:
//
//	move <x> <y> <z> [rotY]
//	place <x,y,z> <type>
//	break <x,y,z>
//	say <text...>
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var addr = flag.String("addr", "localhost:3000", "server host:port")

type initMsg struct {
	T  string `json:"t"`
	ID string `json:"id"`
	Me struct {
		Name string `json:"name"`
	} `json:"me"`
}

func send(c *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func main() {
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	idCh := make(chan initMsg, 1)

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			var base struct {
				T string `json:"t"`
			}
			if err := json.Unmarshal(message, &base); err != nil {
				continue
			}
			if base.T == "init" {
				var init initMsg
				if err := json.Unmarshal(message, &init); err == nil {
					select {
					case idCh <- init:
					default:
					}
				}
			}
			log.Printf("<- %s: %s", base.T, string(message))
		}
	}()

	var me initMsg
	select {
	case me = <-idCh:
		log.Printf("Joined as %s (%s)", me.Me.Name, me.ID)
	case <-time.After(5 * time.Second):
		log.Fatal("No init message from server")
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := handleCommand(c, me, line); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func handleCommand(c *websocket.Conn, me initMsg, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "move":
		if len(fields) < 4 {
			log.Println("usage: move <x> <y> <z> [rotY]")
			return nil
		}
		x, _ := strconv.ParseFloat(fields[1], 64)
		y, _ := strconv.ParseFloat(fields[2], 64)
		z, _ := strconv.ParseFloat(fields[3], 64)
		rot := 0.0
		if len(fields) > 4 {
			rot, _ = strconv.ParseFloat(fields[4], 64)
		}
		return send(c, map[string]any{"t": "update", "id": me.ID, "x": x, "y": y, "z": z, "rotY": rot})
	case "place":
		if len(fields) < 3 {
			log.Println("usage: place <x,y,z> <type>")
			return nil
		}
		return send(c, map[string]any{"t": "place", "key": fields[1], "type": fields[2]})
	case "break":
		if len(fields) < 2 {
			log.Println("usage: break <x,y,z>")
			return nil
		}
		return send(c, map[string]any{"t": "break", "key": fields[1]})
	case "say":
		text := strings.TrimSpace(strings.TrimPrefix(line, "say"))
		if text == "" {
			return nil
		}
		return send(c, map[string]any{"t": "chat", "id": me.ID, "text": text, "name": me.Me.Name})
	default:
		log.Printf("Unknown command %q", fields[0])
		return nil
	}
}
