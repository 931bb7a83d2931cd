package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chongs12/emotion-analysis/pkg/config"
	"github.com/chongs12/emotion-analysis/pkg/logger"
	"github.com/chongs12/emotion-analysis/pkg/utils"
)

// 为调用方签发访问令牌，密钥与签发者取自 auth 配置
func main() {
	ctx := context.Background()
	subject := flag.String("sub", "", "client id placed in the token subject")
	client := flag.String("client", "", "optional client display name")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: token -sub <client-id> [-client <name>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init()
	if cfg.Auth.Secret == "" {
		logger.Error(ctx, "auth.secret is empty, refusing to sign")
		os.Exit(1)
	}

	m := utils.NewJWTManager(cfg.Auth.Secret, cfg.Auth.ExpireTime, cfg.Auth.Issuer)
	tok, err := m.GenerateToken(*subject, *client)
	if err != nil {
		logger.Error(ctx, "Failed to sign token", "error", err.Error())
		os.Exit(1)
	}
	logger.Info(ctx, "Token issued", "subject", *subject, "expires_in", cfg.Auth.ExpireTime.String())
	fmt.Println(tok)
}
