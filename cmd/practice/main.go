// Parlo - interactive terminal practice client. Drives the conversation
// engine directly, without the HTTP server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/okoval/parlo/internal/config"
	"github.com/okoval/parlo/internal/domain"
	"github.com/okoval/parlo/internal/llm"
	"github.com/okoval/parlo/internal/practice"
	"github.com/okoval/parlo/internal/store"
	"github.com/okoval/parlo/internal/transcript"
)

func main() {
	// Keep the console clean; only surface warnings and errors.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "database error:", err)
		os.Exit(1)
	}
	defer repo.Close()

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.GenerationTimeout,
	})

	transcripts, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "transcript error:", err)
		os.Exit(1)
	}
	defer transcripts.Close()

	engine := practice.NewEngine(repo, provider, transcripts, cfg.MemoryWindowSize)

	if err := run(context.Background(), repo, engine); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, repo store.Repository, engine *practice.Engine) error {
	in := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to Parlo!")

	targetLang := pickLanguage(in, "\nWhich language would you like to learn?")
	nativeLang := pickLanguage(in, "\nWhat is your native language?")
	level := pickLevel(in, targetLang)
	scene := pickScene(in)

	user, err := repo.CreateUser(ctx)
	if err != nil {
		return err
	}

	start, err := engine.StartSession(ctx, domain.SessionParams{
		UserID:     user.ID,
		TargetLang: targetLang,
		NativeLang: nativeLang,
		Level:      level,
		Scene:      scene,
	})
	if err != nil {
		return err
	}

	fmt.Println("\n" + start.Opening + "\n")

	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		utterance := strings.TrimSpace(in.Text())
		if utterance == "" {
			continue
		}
		switch strings.ToLower(utterance) {
		case "exit", "quit", "bye":
			return finish(ctx, engine, start.Session.ID)
		}

		turn, err := engine.SubmitTurn(ctx, start.Session.ID, utterance)
		if err != nil {
			if errors.Is(err, domain.ErrGenerationUnavailable) || errors.Is(err, domain.ErrMalformedAnalysis) {
				// Session stays active; the same turn may be retried.
				fmt.Println("(turn failed, try again:", err, ")")
				continue
			}
			return err
		}

		fmt.Println("\n" + turn.Reply)
		for _, c := range turn.Corrections {
			fmt.Printf("  [%s] %s -> %s\n", c.Category, c.Fragment, c.Correction)
		}
		fmt.Println()
	}

	return finish(ctx, engine, start.Session.ID)
}

func finish(ctx context.Context, engine *practice.Engine, sessionID string) error {
	summary, err := engine.EndSession(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Println("\n--- Session Summary ---")
	fmt.Println("Mistakes:", summary.MistakeCount)
	for category, count := range summary.ByCategory {
		fmt.Printf("- %s: %d\n", category, count)
	}

	feedback, err := engine.Feedback(ctx, sessionID)
	if err != nil {
		// Feedback is a best-effort extra; the summary above is already
		// durable.
		fmt.Fprintln(os.Stderr, "feedback unavailable:", err)
	} else {
		fmt.Println("\n--- Session Feedback ---")
		fmt.Println(feedback)
	}

	fmt.Println("\nThank you for practicing with Parlo!")
	return nil
}

func pickLanguage(in *bufio.Scanner, question string) string {
	fmt.Println(question)
	for i, lang := range domain.SupportedLanguages {
		fmt.Printf("%d. %s\n", i+1, lang)
	}
	for {
		choice := readInt(in, "\nEnter the number: ")
		if choice >= 1 && choice <= len(domain.SupportedLanguages) {
			return domain.SupportedLanguages[choice-1]
		}
		fmt.Println("Invalid choice. Please try again.")
	}
}

func pickLevel(in *bufio.Scanner, targetLang string) domain.Level {
	fmt.Printf("\nPlease select your proficiency level in %s:\n", targetLang)
	levels := domain.Levels()
	for i, level := range levels {
		fmt.Printf("%d. %s\n", i+1, level)
	}
	for {
		choice := readInt(in, "\nEnter the number of your level: ")
		if choice >= 1 && choice <= len(levels) {
			return levels[choice-1]
		}
		fmt.Println("Invalid choice. Please try again.")
	}
}

func pickScene(in *bufio.Scanner) domain.Scene {
	fmt.Println("\nPlease select a conversation scenario to practice:")
	scenes := domain.Scenes()
	for i, scene := range scenes {
		fmt.Printf("%d. %s: %s\n", i+1, scene, domain.SceneDescriptions[scene])
	}
	for {
		choice := readInt(in, "\nEnter the number of the scene: ")
		if choice >= 1 && choice <= len(scenes) {
			return scenes[choice-1]
		}
		fmt.Println("Invalid choice. Please try again.")
	}
}

func readInt(in *bufio.Scanner, promptText string) int {
	fmt.Print(promptText)
	if !in.Scan() {
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
	if err != nil {
		return 0
	}
	return n
}
