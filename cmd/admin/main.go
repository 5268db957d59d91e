package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/render"
	"resumeBuilder/internal/resume"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "简历服务运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCreateUserCmd(), newRenderCmd())
	return root
}

func newCreateUserCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "创建账号并打印一次性随机密码",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("missing required flag: --email")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.InitDatabase(cfg.Database)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}

			var existing database.User
			switch err := db.Where("email = ?", email).First(&existing).Error; {
			case err == nil:
				return fmt.Errorf("user %q already exists", email)
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return fmt.Errorf("query user: %w", err)
			}

			password, err := auth.RandomPassword(24)
			if err != nil {
				return fmt.Errorf("generate password: %w", err)
			}
			hashed, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			user := database.User{Name: strings.TrimSpace(name), Email: email, PasswordHash: hashed}
			if err := db.Create(&user).Error; err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "已创建账号：")
			fmt.Fprintf(out, "  id: %d\n", user.ID)
			fmt.Fprintf(out, "  email: %s\n", user.Email)
			fmt.Fprintf(out, "  password: %s\n", password)
			fmt.Fprintln(out, "请妥善保存该密码，它不会再次显示。")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "登录邮箱（必填）")
	cmd.Flags().StringVar(&name, "name", "", "显示名称")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		in, out, layout, chromeBin string
		timeout                    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "将本地简历 JSON 渲染为 PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == "" || out == "" {
				return errors.New("both --in and --out are required")
			}
			raw, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			doc, err := resume.DecodeDocument(raw)
			if err != nil {
				return err
			}

			lt := doc.LayoutType
			if layout != "" {
				lt = resume.LayoutType(layout)
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			renderer := render.New(render.NewRodPrinter(chromeBin, logger), render.Options{
				Timeout:       timeout,
				MaxConcurrent: 1,
				Logger:        logger,
			})

			data, err := renderer.Render(context.Background(), doc, lt.OrDefault())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "简历 JSON 文件")
	cmd.Flags().StringVar(&out, "out", "", "输出 PDF 路径")
	cmd.Flags().StringVar(&layout, "layout", "", "版式：modern、classic、minimal 或 creative")
	cmd.Flags().StringVar(&chromeBin, "chrome-bin", os.Getenv("CHROME_BIN"), "Chromium 可执行文件路径")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "渲染超时")
	return cmd
}
