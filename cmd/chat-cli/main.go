// chat-cli 命令行聊天客户端：登录后打开一个房间会话，
// 实时渲染对账后的消息序列，stdin 每行作为一条消息发送。
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sankethl27/raya/internal/chat"
	"github.com/sankethl27/raya/internal/client"
	"github.com/sankethl27/raya/internal/config"
)

func main() {
	cfg := config.Load()

	server := flag.String("server", cfg.BackendURL, "backend base url")
	username := flag.String("username", "", "login username")
	password := flag.String("password", "", "login password")
	room := flag.String("room", "", "room id to open; empty lists rooms and exits")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: chat-cli -username u -password p [-room id]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := client.New(*server, "")
	login, err := c.Login(ctx, *username, *password)
	if err != nil {
		log.Fatalf("login: err=%v", err)
	}

	if *room == "" {
		rooms, err := c.ListRooms(ctx)
		if err != nil {
			log.Fatalf("rooms: err=%v", err)
		}
		if len(rooms) == 0 {
			fmt.Println("no rooms")
			return
		}
		for _, r := range rooms {
			other := r.Participant1Name
			if r.Participant1ID == login.UserID {
				other = r.Participant2Name
			}
			fmt.Printf("%s  %-14s %s  last=%s\n", r.ID, r.Kind, other, r.LastMessageAt.Format("01-02 15:04"))
		}
		return
	}

	sess := chat.Open(ctx, c, *room, login.UserID, chat.SessionOptions{
		PollInterval: cfg.PollInterval(),
	})
	defer sess.Close()

	feed := chat.NewFeed(sess.Store, os.Stdout, login.UserID)
	go feed.Run(ctx)

	// stdin 读循环：每行一条消息；发送失败把原文提示回来
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			if _, err := sess.Send(ctx, line); err != nil {
				var se *chat.SendError
				if errors.As(err, &se) {
					fmt.Fprintf(os.Stderr, "! send failed, draft restored: %q (%v)\n", se.Body, se.Err)
				} else {
					fmt.Fprintf(os.Stderr, "! %v\n", err)
				}
			}
		}
	}
}
