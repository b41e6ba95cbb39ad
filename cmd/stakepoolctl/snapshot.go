package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/oasisprotocol/deoxysii"
	"github.com/spf13/cobra"

	"github.com/stakepool/liquidcore/storage/pooldb"
	"github.com/stakepool/liquidcore/storage/snapshot"
)

var (
	snapshotKeyFlag  string
	snapshotPathFlag string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Encrypted backup and restore of the pool's persisted state",
}

func decodeSnapshotKey() ([deoxysii.KeySize]byte, error) {
	var key [deoxysii.KeySize]byte
	raw, err := hex.DecodeString(snapshotKeyFlag)
	if err != nil {
		return key, fmt.Errorf("invalid --key: %w", err)
	}
	if len(raw) != deoxysii.KeySize {
		return key, fmt.Errorf("--key must decode to %d bytes, got %d", deoxysii.KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Seal the current persisted state into an encrypted backup file",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := decodeSnapshotKey()
		if err != nil {
			return err
		}

		store, err := pooldb.Open(dataDir)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}
		defer store.Close()

		p, err := store.Load()
		if err != nil {
			return fmt.Errorf("loading pool state: %w", err)
		}

		env, err := snapshot.Seal(p, key, []byte(dataDir))
		if err != nil {
			return fmt.Errorf("sealing snapshot: %w", err)
		}
		raw, err := cbor.Marshal(env)
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshotPathFlag, raw, 0o600); err != nil {
			return err
		}
		fmt.Printf("snapshot exported to %s\n", snapshotPathFlag)
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore persisted state from an encrypted backup file, overwriting the current store",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := decodeSnapshotKey()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(snapshotPathFlag)
		if err != nil {
			return err
		}
		var env snapshot.Envelope
		if err := cbor.Unmarshal(raw, &env); err != nil {
			return err
		}
		p, err := snapshot.Open(&env, key, []byte(dataDir))
		if err != nil {
			return fmt.Errorf("opening snapshot: %w", err)
		}

		store, err := pooldb.Open(dataDir)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}
		defer store.Close()
		if err := store.Save(p); err != nil {
			return err
		}
		fmt.Printf("snapshot imported from %s\n", snapshotPathFlag)
		return nil
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotKeyFlag, "key", "", "hex-encoded deoxys-II key (32 bytes)")
	snapshotCmd.PersistentFlags().StringVar(&snapshotPathFlag, "file", "", "backup file path")
	_ = snapshotCmd.MarkPersistentFlagRequired("key")
	_ = snapshotCmd.MarkPersistentFlagRequired("file")

	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
}
