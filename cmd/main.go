package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/tidy/internal/models"
	cfgPkg "github.com/xhad/tidy/pkg/config"
	"github.com/xhad/tidy/pkg/convert"
	"github.com/xhad/tidy/pkg/executor"
	"github.com/xhad/tidy/pkg/hardware"
	"github.com/xhad/tidy/pkg/llm"
	"github.com/xhad/tidy/pkg/pipeline"
	"github.com/xhad/tidy/pkg/prompt"
	"github.com/xhad/tidy/pkg/splitter"
	"github.com/xhad/tidy/pkg/store"
	"github.com/xhad/tidy/server"
)

type Flags struct {
	ConfigPath  string
	ConvertPath string
	ExtractDoc  string
	TidyDoc     string
	TidyTable   string
	Serve       bool
	KeepImages  bool
}

func main() {
	flags := parseFlags()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	if problems := config.Validate(); len(problems) > 0 {
		for _, p := range problems {
			color.Red("config: %s: %s", p.Field, p.Message)
		}
		os.Exit(1)
	}

	if err := run(flags, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.ConvertPath, "convert", "", "Document to convert to markdown")
	flag.StringVar(&flags.ExtractDoc, "extract", "", "Document ID to extract tables from")
	flag.StringVar(&flags.TidyDoc, "doc", "", "Document ID for the tidy pipeline")
	flag.StringVar(&flags.TidyTable, "table", "", "Table ID for the tidy pipeline")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the HTTP API server")
	flag.BoolVar(&flags.KeepImages, "keep-images", false, "Keep intermediate page images")
	flag.Parse()

	return flags
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(flags Flags, config *cfgPkg.Config) error {
	ctx := context.Background()

	gate := hardware.NewWithConfig(hardware.GateConfig{
		TempThresholdC: config.Gate.TempThresholdC,
		MinFreeMB:      config.Gate.MinFreeMB,
		WaitTimeout:    time.Duration(config.Gate.WaitTimeoutSec) * time.Second,
		PollInterval:   time.Duration(config.Gate.PollIntervalSec) * time.Second,
		Querier:        &hardware.SMIQuerier{Command: config.Gate.SMICommand},
	})

	runner := convert.NewWithConfig(convert.RunnerConfig{
		Command:   config.Converter.Command,
		Flags:     config.Converter.Flags,
		OutputExt: config.Converter.OutputExt,
		Timeout:   time.Duration(config.Converter.TimeoutSec) * time.Second,
		Gate:      gate,
	})

	var bar *progressbar.ProgressBar
	split := splitter.NewWithConfig(splitter.SplitterConfig{
		Converter:  runner,
		ImagesDir:  config.Paths.ImagesDir,
		KeepImages: flags.KeepImages || config.Splitter.KeepImages,
		OnPage: func(page, total int) {
			if bar == nil {
				bar = getProgressBar(total, "Converting pages...")
			}
			bar.Set(page)
		},
	})

	layout := pipeline.Layout{
		OutputsRoot:  config.Paths.OutputsDir,
		TablesRoot:   config.Paths.TablesDir,
		ProfilesRoot: config.Paths.ProfilesDir,
		AnalysisRoot: config.Paths.AnalysisDir,
		StrategyRoot: config.Paths.StrategyDir,
		CodegenRoot:  config.Paths.CodegenDir,
		CleanedRoot:  config.Paths.CleanedDir,
	}

	extractor := pipeline.NewExtractor(layout, nil)

	switch {
	case flags.ConvertPath != "":
		return runConvert(ctx, split, flags.ConvertPath, config.Paths.OutputsDir, &bar)

	case flags.ExtractDoc != "":
		return runExtract(extractor, flags.ExtractDoc)

	case flags.TidyDoc != "" && flags.TidyTable != "":
		return runTidy(ctx, config, layout, flags.TidyDoc, flags.TidyTable)

	case flags.Serve:
		return runServe(config, split, extractor, layout)
	}

	flag.Usage()
	return fmt.Errorf("no operation selected: use -convert, -extract, -doc/-table or -serve")
}

func runConvert(ctx context.Context, split *splitter.Splitter, docPath, outputsDir string, bar **progressbar.ProgressBar) error {
	color.Blue("\nConverting %s\n", docPath)

	outPath, pages, err := split.SplitAndConvert(ctx, docPath, outputsDir)
	if err != nil {
		return fmt.Errorf("conversion failed: %v", err)
	}
	if *bar != nil {
		(*bar).Finish()
	}

	color.Green("\n✓ Converted %d pages\n", pages)
	fmt.Printf("Output: %s\n", outPath)
	return nil
}

func runExtract(extractor *pipeline.Extractor, docID string) error {
	result, err := extractor.Extract(docID)
	if err != nil {
		return fmt.Errorf("table extraction failed: %v", err)
	}

	color.Green("✓ Extracted %d tables from %s\n", result.NumTables, result.SourcePath)
	for _, path := range result.TablePaths {
		fmt.Printf("  %s\n", path)
	}
	return nil
}

func runTidy(ctx context.Context, config *cfgPkg.Config, layout pipeline.Layout, docID, tableID string) error {
	generator, err := llm.NewWithConfig(llm.GeneratorConfig{
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
		RateLimit:   config.LLM.RateLimit,
		BaseURL:     config.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %v", err)
	}

	prompts, err := loadPrompts(config.LLM.PromptDir)
	if err != nil {
		return err
	}

	orchestrator := pipeline.NewWithConfig(pipeline.OrchestratorConfig{
		Layout:    layout,
		Generator: generator,
		Executor:  executor.New(),
		Prompts:   prompts,
		Model:     generator.Model(),
	})

	var recorder *store.RunStore
	if config.Database.URL != "" {
		recorder, err = store.NewWithConfig(store.RunStoreConfig{
			ConnString: config.Database.URL,
			TableName:  config.Database.TableName,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize run store: %v", err)
		}
		defer recorder.Close()
	}

	color.Blue("\nRunning tidy pipeline for %s table %s\n", docID, tableID)

	started := time.Now()
	result, runErr := orchestrator.Run(ctx, docID, tableID)

	if recorder != nil {
		record := models.RunRecord{
			DocID:    docID,
			TableID:  tableID,
			Status:   "success",
			Duration: time.Since(started),
		}
		if runErr != nil {
			record.Status = "error"
			record.Error = runErr.Error()
		} else {
			record.RowsOriginal = result.RowsOriginal
			record.RowsCleaned = result.RowsCleaned
		}
		if err := recorder.Record(ctx, record); err != nil {
			log.Printf("failed to record run: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}

	color.Green("\n✓ Pipeline complete\n")
	fmt.Printf("  rows: %d -> %d\n", result.RowsOriginal, result.RowsCleaned)
	fmt.Printf("  cleaned table: %s\n", result.CleanedCSVPath)
	fmt.Printf("  cleaning log:  %s\n", result.LogPath)
	return nil
}

func runServe(config *cfgPkg.Config, split *splitter.Splitter, extractor *pipeline.Extractor, layout pipeline.Layout) error {
	generator, err := llm.NewWithConfig(llm.GeneratorConfig{
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
		RateLimit:   config.LLM.RateLimit,
		BaseURL:     config.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %v", err)
	}

	prompts, err := loadPrompts(config.LLM.PromptDir)
	if err != nil {
		return err
	}

	orchestrator := pipeline.NewWithConfig(pipeline.OrchestratorConfig{
		Layout:    layout,
		Generator: generator,
		Executor:  executor.New(),
		Prompts:   prompts,
		Model:     generator.Model(),
	})

	serverConfig := server.Config{
		Port:         config.Server.Port,
		Splitter:     split,
		Extractor:    extractor,
		Orchestrator: orchestrator,
		OutputsDir:   config.Paths.OutputsDir,
	}

	if config.Database.URL != "" {
		recorder, err := store.NewWithConfig(store.RunStoreConfig{
			ConnString: config.Database.URL,
			TableName:  config.Database.TableName,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize run store: %v", err)
		}
		defer recorder.Close()
		serverConfig.Recorder = recorder
	}

	return server.New(serverConfig).ListenAndServe()
}

func loadPrompts(dir string) (pipeline.PromptSet, error) {
	analysis, err := prompt.Load(dir, prompt.AnalysisTemplate)
	if err != nil {
		return pipeline.PromptSet{}, fmt.Errorf("failed to load analysis template: %v", err)
	}
	strategy, err := prompt.Load(dir, prompt.StrategyTemplate)
	if err != nil {
		return pipeline.PromptSet{}, fmt.Errorf("failed to load strategy template: %v", err)
	}
	codegen, err := prompt.Load(dir, prompt.CodegenTemplate)
	if err != nil {
		return pipeline.PromptSet{}, fmt.Errorf("failed to load codegen template: %v", err)
	}

	return pipeline.PromptSet{
		Analysis: analysis,
		Strategy: strategy,
		Codegen:  codegen,
	}, nil
}
