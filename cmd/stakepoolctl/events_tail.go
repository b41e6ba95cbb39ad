package main

import (
	"encoding/json"
	"fmt"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/stakepool/liquidcore/events"
)

var (
	followFlag     bool
	searchLimitFlag int
)

var eventsTailCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail the pool's JSON-lines event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dataDir + "/events.log"
		t, err := tail.TailFile(path, tail.Config{
			ReOpen:    followFlag,
			Follow:    followFlag,
			MustExist: false,
			Poll:      true,
		})
		if err != nil {
			return fmt.Errorf("tailing %s: %w", path, err)
		}
		for line := range t.Lines {
			if line.Err != nil {
				logger.Error("tail read error", "err", line.Err)
				continue
			}
			fmt.Println(line.Text)
		}
		return t.Err()
	},
}

var eventsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a full-text query against the indexed event history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := events.OpenIndex(dataDir + "/events.idx")
		if err != nil {
			return fmt.Errorf("opening event search index: %w", err)
		}
		defer idx.Close()

		result, err := idx.Search(args[0], searchLimitFlag)
		if err != nil {
			return err
		}
		for _, hit := range result.Hits {
			line, err := json.Marshal(hit.Fields)
			if err != nil {
				return err
			}
			fmt.Println(string(line))
		}
		return nil
	},
}

func init() {
	eventsTailCmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "keep following the log as new events are appended")
	eventsSearchCmd.Flags().IntVar(&searchLimitFlag, "limit", 20, "maximum number of matching events to print")
	eventsTailCmd.AddCommand(eventsSearchCmd)
}
