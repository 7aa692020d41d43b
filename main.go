package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sawalkaro/config"
	"sawalkaro/crew"
	"sawalkaro/engage"
	"sawalkaro/pipeline"
	"sawalkaro/telegram"
)

var (
	banner  = color.New(color.FgCyan, color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failure("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "sawalkaro",
		Short:         "Political accountability posting engine",
		Long:          "Gathers candidate news, drafts accountability posts with language models,\nand routes every draft through a Telegram approval gate before publishing to X.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to config.json")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newRunCmd(&configPath, &verbose),
		newLoopCmd(&configPath, &verbose),
		newEngageCmd(&configPath, &verbose),
		newCustomCmd(&configPath, &verbose),
		newChatIDCmd(&configPath, &verbose),
	)
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		useFlash  bool
		agentsDir string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce one draft, review it on Telegram, publish if approved",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(*configPath, *verbose)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			runner, err := app.runner(useFlash, agentsDir)
			if err != nil {
				return err
			}
			fmt.Println(banner("📢 sawalkaro — starting run"))
			if err := runner.Run(ctx); err != nil {
				return err
			}
			fmt.Println(success("run finished"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useFlash, "flash", false, "use the single-shot producer instead of the crew")
	cmd.Flags().StringVar(&agentsDir, "agents-dir", "config", "directory holding agents.yaml and tasks.yaml overrides")
	return cmd
}

func newLoopCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		every     time.Duration
		useFlash  bool
		agentsDir string
	)
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run the pipeline on a fixed cadence until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(*configPath, *verbose)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			fmt.Println(banner(fmt.Sprintf("📢 sawalkaro — posting every %s", every)))
			for {
				runner, err := app.runner(useFlash, agentsDir)
				if err != nil {
					return err
				}
				if err := runner.Run(ctx); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					// One failed run must not kill the cadence.
					app.logger.Error("run failed", "error", err)
					fmt.Println(failure("run failed: " + err.Error()))
				}
				fmt.Println(success(fmt.Sprintf("next post in %s", every)))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(every):
				}
			}
		},
	}
	cmd.Flags().DurationVar(&every, "every", 6*time.Hour, "time between runs")
	cmd.Flags().BoolVar(&useFlash, "flash", false, "use the single-shot producer instead of the crew")
	cmd.Flags().StringVar(&agentsDir, "agents-dir", "config", "directory holding agents.yaml and tasks.yaml overrides")
	return cmd
}

func newEngageCmd(configPath *string, verbose *bool) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "engage",
		Short: "Draft a quote-tweet dunk on a target handle's latest post",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(*configPath, *verbose)
			if err != nil {
				return err
			}
			if target == "" && len(app.cfg.TargetHandles) > 0 {
				target = app.cfg.TargetHandles[0]
			}
			if err := app.cfg.Validate(config.NeedTelegram, config.NeedXAI, config.NeedTwitter, config.NeedTwitterRead); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			sc, err := app.scraper()
			if err != nil {
				return err
			}
			tw, err := app.publisher()
			if err != nil {
				return err
			}
			agent, err := engage.New(sc, app.xaiLLM(), tw, target, app.logger)
			if err != nil {
				return err
			}
			reviewer, err := app.reviewer()
			if err != nil {
				return err
			}
			runner, err := pipeline.NewRunner(agent, reviewer, agent, app.contentStore(), app.archive(), app.logger)
			if err != nil {
				return err
			}
			fmt.Println(banner("⚔️ sawalkaro engage — hunting @" + target))
			return runner.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "handle to quote-tweet (defaults to the first configured target)")
	return cmd
}

func newCustomCmd(configPath *string, verbose *bool) *cobra.Command {
	var (
		headline   string
		sourceURL  string
		keyFact    string
		politician string
		agentsDir  string
	)
	cmd := &cobra.Command{
		Use:   "custom",
		Short: "Push a hand-picked article through the crew, skipping intelligence and curation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(*configPath, *verbose)
			if err != nil {
				return err
			}
			if err := app.cfg.Validate(config.NeedTelegram, config.NeedXAI, config.NeedPerplexity, config.NeedTwitter); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			producer, err := app.crewProducer(agentsDir)
			if err != nil {
				return err
			}
			producer.UseStory(crew.CurationResult{
				Headline:                  headline,
				KeyFact:                   keyFact,
				PrimaryPoliticianInvolved: politician,
				URL:                       sourceURL,
			})
			runner, err := app.runnerWith(producer)
			if err != nil {
				return err
			}
			fmt.Println(banner("📢 sawalkaro — custom article run"))
			return runner.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&headline, "headline", "", "article headline")
	cmd.Flags().StringVar(&sourceURL, "url", "", "article source url")
	cmd.Flags().StringVar(&keyFact, "key-fact", "", "the hard number or fact at the core of the story")
	cmd.Flags().StringVar(&politician, "politician", "", "primary responsible official")
	cmd.Flags().StringVar(&agentsDir, "agents-dir", "config", "directory holding agents.yaml and tasks.yaml overrides")
	_ = cmd.MarkFlagRequired("headline")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newChatIDCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "chat-id",
		Short: "Detect your Telegram chat id (message the bot first)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(*configPath, *verbose)
			if err != nil {
				return err
			}
			if app.cfg.Telegram.BotToken == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}
			tg, err := telegram.New(telegram.Options{Token: app.cfg.Telegram.BotToken, Logger: app.logger})
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			updates, err := tg.GetUpdates(ctx, 0, 0)
			if err != nil {
				return err
			}
			for i := len(updates) - 1; i >= 0; i-- {
				if msg := updates[i].Message; msg != nil {
					fmt.Println(success(fmt.Sprintf("chat id: %d", msg.Chat.ID)))
					fmt.Println("set TELEGRAM_CHAT_ID to this value")
					return nil
				}
			}
			return errors.New("no messages found yet — open Telegram, message your bot, then run this again")
		},
	}
}

// runnerWith assembles the standard runner around any producer.
func (a *app) runnerWith(producer pipeline.Producer) (*pipeline.Runner, error) {
	reviewer, err := a.reviewer()
	if err != nil {
		return nil, err
	}
	tw, err := a.publisher()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(producer, reviewer, tw, a.contentStore(), a.archive(), a.logger)
}

func (a *app) runner(useFlash bool, agentsDir string) (*pipeline.Runner, error) {
	var (
		producer pipeline.Producer
		err      error
	)
	if useFlash {
		if err := a.cfg.Validate(config.NeedTelegram, config.NeedOpenAI, config.NeedPerplexity, config.NeedFal, config.NeedTwitter); err != nil {
			return nil, err
		}
		producer, err = a.flashProducer()
	} else {
		if err := a.cfg.Validate(config.NeedTelegram, config.NeedXAI, config.NeedPerplexity, config.NeedTwitter, config.NeedTwitterRead); err != nil {
			return nil, err
		}
		producer, err = a.crewProducer(agentsDir)
	}
	if err != nil {
		return nil, err
	}
	return a.runnerWith(producer)
}
