// Command useradd creates a credential record directly in the database.
// There is no self-service registration endpoint; operators provision users
// with this tool.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"piggybank/internal/cli"
	"piggybank/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	username := flag.String("username", "", "username for the new account")
	googleID := flag.String("google-id", "", "optional Google account linkage")
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "usage: useradd -username <name> [-google-id <id>]")
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		logger.Error("Failed to read password", "error", err)
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		os.Exit(2)
	}

	user, err := repo.CreateUser(context.Background(), strings.TrimSpace(*username), password, *googleID)
	if err != nil {
		logger.Error("Failed to create user", "username", *username, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
}
