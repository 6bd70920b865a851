package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/cli"
	"github.com/aretw0/reel/internal/presentation/tui"
	"github.com/aretw0/reel/pkg/render"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <composition>",
	Short: "Render a composition",
	Long: `Renders the composition described by a YAML or JSON file. The page at --url must
expose window.reel_setFrame and set window.reel_renderReady once a frame is drawn.

Exit status is 0 on success, 1 on failure and 130 when cancelled (Ctrl+C).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		comp, err := cli.LoadComposition(args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		serveURL, _ := flags.GetString("url")
		if serveURL == "" {
			serveURL = cfg.Render.ServeURL
		}
		framesFlag, _ := flags.GetString("frames")
		frames, err := cli.ParseFrameRange(framesFlag)
		if err != nil {
			return err
		}
		timeout := cfg.Render.Timeout
		if flags.Changed("timeout") {
			timeout, _ = flags.GetDuration("timeout")
		}
		if flags.Changed("parallelism") {
			cfg.Render.Parallelism, _ = flags.GetInt("parallelism")
		}
		jsonMode, _ := flags.GetBool("json")

		rt, err := cli.Build(cfg, logger, cli.BuildOptions{})
		if err != nil {
			return err
		}
		output, _ := flags.GetString("output")
		if output == "" {
			output = rt.DefaultOutput(cfg.Render.Output, comp.ID)
		}

		if !jsonMode {
			tui.PrintBanner(cmd.ErrOrStderr(), reel.Version)
		}
		start := time.Now()
		out := cli.RunRender(context.Background(), rt.Orchestrator, cli.RenderOptions{
			Request: render.Request{
				Composition: comp,
				ServeURL:    serveURL,
				Frames:      frames,
				Timeout:     timeout,
				Output:      output,
			},
			Out:  os.Stdout,
			JSON: jsonMode,
		})
		logger.Debug("render finished", "outcome", out.Kind.String(), "elapsed", time.Since(start))

		if err := rt.Close(); err != nil {
			logger.Warn("failed to release resources", "err", err)
		}
		if code := cli.ExitCode(out); code != cli.ExitSucceeded {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("url", "u", "", "URL serving the composition bundle")
	renderCmd.Flags().StringP("output", "o", "", "Output location (default derived from render.output)")
	renderCmd.Flags().String("frames", "", fmt.Sprintf("Frame range to render, e.g. %q or %q", "0-59", "12"))
	renderCmd.Flags().IntP("parallelism", "p", 1, "Concurrent browser sessions")
	renderCmd.Flags().Duration("timeout", 0, "Cancel the render after this long")
	renderCmd.Flags().Bool("json", false, "Print a JSON summary instead of the report")
}
