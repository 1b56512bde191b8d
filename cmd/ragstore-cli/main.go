package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"ragstore/internal/auth"
	"ragstore/internal/client"
	"ragstore/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		serverURL  string
		identifier string
		username   string
		hashMode   bool
	)
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the ragstore server")
	flag.StringVar(&identifier, "db", "default", "Store identifier to start in")
	flag.StringVar(&username, "user", "", "Username to authenticate as (prompts for password)")
	flag.BoolVar(&hashMode, "hash", false, "Read a password from stdin and print its bcrypt hash")
	flag.Parse()

	if hashMode {
		if err := printHash(); err != nil {
			log.Fatal(err)
		}
		return
	}

	c := client.New(serverURL)
	if username != "" {
		password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
		if err != nil {
			log.Fatalf("read password: %v", err)
		}
		if err := c.Login(context.Background(), username, password); err != nil {
			log.Fatalf("login failed: %v", err)
		}
	}

	m := tui.New(c, identifier)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

// printHash produces the bcrypt hash expected in the ADMIN_SECRET
// environment variable.
func printHash() error {
	password, err := readPassword("Password to hash: ")
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		data, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
