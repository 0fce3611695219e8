package main

import (
	"os"

	"expenses/internal/cli"
	"expenses/internal/log"
	"expenses/internal/mcp"

	"github.com/mark3labs/mcp-go/server"
)

const version = "1.0.0"

func main() {
	cli.LoadEnvFile()
	// stdout carries the protocol, everything else goes to stderr.
	cfg := cli.LoadAndValidateConfig(os.Stderr)
	logger := cli.SetupLogger(cfg, log.ComponentMCP, os.Stderr)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	s := mcp.NewServer("expenses", version, repo, logger)
	logger.Info("Starting MCP server on stdio", "db", cfg.SQLiteDBPath)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("MCP server error", log.FieldError, err.Error())
		os.Exit(1)
	}
}
