package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
	"github.com/stakepool/liquidcore/pool"
)

var (
	epochFlag       uint64
	freeBalanceFlag uint64
	validatorFlag   string
)

var epochCmd = &cobra.Command{
	Use:   "epoch",
	Short: "Drive one settlement round",
}

func fullOperatorBudget() pool.Budget {
	return pool.Budget{Local: 1_000_000, External: 1_000_000, Callback: 1_000_000}
}

var epochStakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Run one epoch_stake round",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		dispatched, err := s.engine.RunEpochStake(ctx, quantity.NewFromUint64(freeBalanceFlag), fullOperatorBudget())
		if err != nil {
			return err
		}
		fmt.Printf("epoch_stake: dispatched=%v\n", dispatched)
		return s.Save()
	},
}

var epochUnstakeCmd = &cobra.Command{
	Use:   "unstake",
	Short: "Run one epoch_unstake round",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		dispatched, err := s.engine.RunEpochUnstake(ctx, fullOperatorBudget())
		if err != nil {
			return err
		}
		fmt.Printf("epoch_unstake: dispatched=%v\n", dispatched)
		return s.Save()
	},
}

var epochWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Run one epoch_withdraw round for a validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		validatorID, err := address.Decode(validatorFlag)
		if err != nil {
			return fmt.Errorf("invalid --validator: %w", err)
		}

		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		dispatched, err := s.engine.RunEpochWithdraw(ctx, validatorID, fullOperatorBudget())
		if err != nil {
			return err
		}
		fmt.Printf("epoch_withdraw: dispatched=%v\n", dispatched)
		return s.Save()
	},
}

var epochUpdateRewardsCmd = &cobra.Command{
	Use:   "update-rewards",
	Short: "Poll one validator's total balance and ingest rewards",
	RunE: func(cmd *cobra.Command, args []string) error {
		validatorID, err := address.Decode(validatorFlag)
		if err != nil {
			return fmt.Errorf("invalid --validator: %w", err)
		}

		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.engine.RunUpdateRewards(ctx, validatorID, fullOperatorBudget()); err != nil {
			return err
		}
		return s.Save()
	},
}

var epochSyncBalanceCmd = &cobra.Command{
	Use:   "sync-balance",
	Short: "Reconcile local and reported balances for one validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		validatorID, err := address.Decode(validatorFlag)
		if err != nil {
			return fmt.Errorf("invalid --validator: %w", err)
		}

		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.engine.RunSyncValidatorBalance(ctx, validatorID, fullOperatorBudget()); err != nil {
			return err
		}
		return s.Save()
	},
}

func init() {
	epochCmd.PersistentFlags().Uint64Var(&epochFlag, "epoch", 0, "current epoch number")
	epochStakeCmd.Flags().Uint64Var(&freeBalanceFlag, "free-balance", 0, "contract's current free base-token balance")
	for _, c := range []*cobra.Command{epochWithdrawCmd, epochUpdateRewardsCmd, epochSyncBalanceCmd} {
		c.Flags().StringVar(&validatorFlag, "validator", "", "validator address")
		_ = c.MarkFlagRequired("validator")
	}

	epochCmd.AddCommand(epochStakeCmd, epochUnstakeCmd, epochWithdrawCmd, epochUpdateRewardsCmd, epochSyncBalanceCmd)
}
