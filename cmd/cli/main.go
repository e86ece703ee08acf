// Command cli talks to a running bot's ops API.
//
//	cli status
//	cli subscribers
//	cli unsubscribe <tg_id>
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("API_KEY")

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Print("Command (status | subscribers | unsubscribe <id>): ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		args = strings.Fields(line)
	}
	if len(args) == 0 {
		fmt.Println("No command given.")
		os.Exit(2)
	}

	c := &client{base: strings.TrimRight(api, "/"), key: key, http: &http.Client{Timeout: 10 * time.Second}}
	var err error
	switch args[0] {
	case "status":
		err = c.status()
	case "subscribers":
		err = c.subscribers()
	case "unsubscribe":
		if len(args) < 2 {
			err = fmt.Errorf("usage: unsubscribe <tg_id>")
			break
		}
		err = c.remove(args[1])
	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

type client struct {
	base string
	key  string
	http *http.Client
}

func (c *client) do(method, path string) ([]byte, error) {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *client) status() error {
	body, err := c.do(http.MethodGet, "/api/status")
	if err != nil {
		return err
	}
	var st struct {
		Report    string    `json:"report"`
		Up        bool      `json:"up"`
		LastError string    `json:"last_error"`
		CheckedAt time.Time `json:"checked_at"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return err
	}
	state := "DOWN"
	if st.Up {
		state = "UP"
	}
	fmt.Printf("%s  %s (checked %s)\n", state, st.Report, st.CheckedAt.Local().Format(time.RFC3339))
	if st.LastError != "" {
		fmt.Println("  error:", st.LastError)
	}
	return nil
}

func (c *client) subscribers() error {
	body, err := c.do(http.MethodGet, "/api/subscribers")
	if err != nil {
		return err
	}
	var subs []struct {
		ID         int64  `json:"tg_id"`
		ChatID     int64  `json:"current_chat_id"`
		Username   string `json:"username"`
		Subscribed bool   `json:"receiving_updates"`
	}
	if err := json.Unmarshal(body, &subs); err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Printf("%d\tchat=%d\t@%s\tsubscribed=%v\n", s.ID, s.ChatID, s.Username, s.Subscribed)
	}
	fmt.Printf("%d subscriber(s)\n", len(subs))
	return nil
}

func (c *client) remove(raw string) error {
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	if _, err := c.do(http.MethodDelete, "/api/subscribers/"+raw); err != nil {
		return err
	}
	fmt.Println("Removed", raw)
	return nil
}
