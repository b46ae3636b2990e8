package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bader/pkg/client"
)

func main() {
	addr := "localhost:6379"
	args := os.Args[1:]

	for len(args) > 0 && strings.HasPrefix(args[0], "-addr=") {
		addr = strings.TrimPrefix(args[0], "-addr=")
		args = args[1:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := client.Dial(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	cmd := strings.ToLower(args[0])
	rest := args[1:]

	switch cmd {
	case "ping":
		handlePing(c)
	case "get":
		handleGet(c, rest)
	case "set":
		handleSet(c, rest)
	case "del":
		handleDel(c, rest)
	case "exists":
		handleExists(c, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: bader-cli [-addr=host:port] <command> [args...]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ping")
	fmt.Println("  get <key>")
	fmt.Println("  set <key> <value> [EX <seconds>|PX <millis>]")
	fmt.Println("  del <key>")
	fmt.Println("  exists <key>")
}

func handlePing(c *client.Client) {
	if err := c.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("PONG")
}

func handleGet(c *client.Client, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: get <key>")
		os.Exit(1)
	}

	value, ok, err := c.Get(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("(nil)")
		return
	}
	fmt.Println(string(value))
}

func handleSet(c *client.Client, args []string) {
	if len(args) != 2 && len(args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: set <key> <value> [EX <seconds>|PX <millis>]")
		os.Exit(1)
	}

	key, value := args[0], []byte(args[1])
	var err error

	if len(args) == 4 {
		n, parseErr := strconv.ParseInt(args[3], 10, 64)
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "invalid TTL: %v\n", parseErr)
			os.Exit(1)
		}
		switch strings.ToUpper(args[2]) {
		case "EX":
			err = c.SetEx(key, value, n)
		case "PX":
			err = c.SetPx(key, value, n)
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n", args[2])
			os.Exit(1)
		}
	} else {
		err = c.Set(key, value)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func handleDel(c *client.Client, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: del <key>")
		os.Exit(1)
	}

	deleted, err := c.Del(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if deleted {
		fmt.Println("DELETED 1")
	} else {
		fmt.Println("DELETED 0")
	}
}

func handleExists(c *client.Client, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: exists <key>")
		os.Exit(1)
	}

	exists, err := c.Exists(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(exists)
}
