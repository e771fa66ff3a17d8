package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/CulleyHarrelson/svg-cli/internal/anthropic"
	"github.com/CulleyHarrelson/svg-cli/internal/envsetup"
	"github.com/CulleyHarrelson/svg-cli/internal/logger"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/samber/lo"
)

// credentialEnvVars are checked in order; the first non-empty value wins.
var credentialEnvVars = []string{"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"}

func main() {
	log := logger.New()
	if err := mainE(context.Background(), os.Args[1:], log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE(ctx context.Context, args []string, log *slog.Logger) error {
	_ = godotenv.Load()

	root := newRootCommand(log)
	err := root.ParseAndRun(ctx, args, ff.WithEnvVarPrefix("SVG_CLI"))
	if errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec) {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
		return nil
	}
	return err
}

func newRootCommand(log *slog.Logger) *ff.Command {
	rootFlags := ff.NewFlagSet("svg-cli")
	model := rootFlags.StringLong("model", "",
		fmt.Sprintf("Claude model to use (default %s; known: %s)",
			anthropic.DefaultModel, strings.Join(modelNames(), ", ")))

	root := &ff.Command{
		Name:      "svg-cli",
		Usage:     "svg-cli [FLAGS] <subcommand> ...",
		ShortHelp: "create and edit SVG images with Claude",
		Flags:     rootFlags,
	}

	createFlags := ff.NewFlagSet("create").SetParent(rootFlags)
	createOutput := createFlags.String('o', "output", "", "path to write the generated SVG to")
	root.Subcommands = append(root.Subcommands, &ff.Command{
		Name:      "create",
		Usage:     "svg-cli create --output <path> <prompt>",
		ShortHelp: "generate a new SVG from a text description",
		Flags:     createFlags,
		Exec: func(ctx context.Context, args []string) error {
			prompt, err := promptArg(args)
			if err != nil {
				return err
			}
			if *createOutput == "" {
				return errors.New("output path is required (--output)")
			}
			client, err := newClient(*model)
			if err != nil {
				return err
			}
			return runCreate(ctx, client, log, prompt, *createOutput)
		},
	})

	editFlags := ff.NewFlagSet("edit").SetParent(rootFlags)
	editInput := editFlags.String('i', "input", "", "path of the SVG file to edit")
	editOutput := editFlags.String('o', "output", "", "path to write the edited SVG to")
	root.Subcommands = append(root.Subcommands, &ff.Command{
		Name:      "edit",
		Usage:     "svg-cli edit --input <path> --output <path> <prompt>",
		ShortHelp: "modify an existing SVG file per a text instruction",
		Flags:     editFlags,
		Exec: func(ctx context.Context, args []string) error {
			prompt, err := promptArg(args)
			if err != nil {
				return err
			}
			if *editInput == "" {
				return errors.New("input path is required (--input)")
			}
			if *editOutput == "" {
				return errors.New("output path is required (--output)")
			}
			client, err := newClient(*model)
			if err != nil {
				return err
			}
			return runEdit(ctx, client, log, prompt, *editInput, *editOutput)
		},
	})

	setupFlags := ff.NewFlagSet("setup").SetParent(rootFlags)
	root.Subcommands = append(root.Subcommands, &ff.Command{
		Name:      "setup",
		Usage:     "svg-cli setup",
		ShortHelp: "interactively write a .env file with your API key",
		Flags:     setupFlags,
		Exec: func(ctx context.Context, args []string) error {
			done, err := envsetup.Run()
			if err != nil {
				return fmt.Errorf("running setup wizard: %w", err)
			}
			if !done {
				log.Info("setup aborted, nothing written")
				return nil
			}
			log.Info("configuration saved", "path", ".env")
			return nil
		},
	})

	return root
}

func modelNames() []string {
	return lo.Map(anthropic.SupportedModels, func(m anthropic.Model, _ int) string {
		return string(m)
	})
}

func newClient(model string) (*anthropic.Client, error) {
	apiKey := lookupAPIKey()
	if apiKey == "" {
		return nil, errNoCredential()
	}
	return anthropic.NewClient(apiKey, anthropic.Model(model)), nil
}

// lookupAPIKey scans the recognized credential variables in priority order.
func lookupAPIKey() string {
	for _, name := range credentialEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func errNoCredential() error {
	msg := "no API key found: set " + strings.Join(credentialEnvVars, " or ")
	if envsetup.NeedsSetup() {
		msg += ", or run 'svg-cli setup' to write a .env file"
	}
	return errors.New(msg)
}

func promptArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one prompt argument, got %d", len(args))
	}
	return args[0], nil
}

func runCreate(ctx context.Context, client *anthropic.Client, log *slog.Logger, prompt, outputPath string) error {
	log.InfoContext(ctx, "creating SVG from prompt", "prompt", prompt)

	doc, err := client.Create(ctx, prompt)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(doc), 0644); err != nil {
		return fmt.Errorf("saving SVG file: %w", err)
	}

	log.InfoContext(ctx, "SVG created", "path", outputPath)
	return nil
}

func runEdit(ctx context.Context, client *anthropic.Client, log *slog.Logger, prompt, inputPath, outputPath string) error {
	existing, err := os.ReadFile(inputPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("input file %s not found", inputPath)
	}
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	log.InfoContext(ctx, "editing SVG", "input", inputPath, "prompt", prompt)

	doc, err := client.Edit(ctx, prompt, string(existing))
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(doc), 0644); err != nil {
		return fmt.Errorf("saving SVG file: %w", err)
	}

	log.InfoContext(ctx, "SVG edited", "path", outputPath)
	return nil
}
