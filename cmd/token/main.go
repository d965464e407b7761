package main

import (
	"fmt"
	"log"

	"github.com/spf13/pflag"

	"github.com/seanblong/kbsearch/internal/auth"
	"github.com/seanblong/kbsearch/internal/config"
)

func main() {
	fs := pflag.NewFlagSet("kbsearch-token", pflag.ExitOnError)
	subject := fs.String("subject", "", "Token subject (user or service name)")
	name := fs.String("name", "", "Optional display name")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	if *subject == "" {
		log.Fatal("--subject is required")
	}

	a, err := auth.New(cfg.Auth.JwtSecret, true, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal(err)
	}
	token, err := a.GenerateToken(*subject, *name)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
