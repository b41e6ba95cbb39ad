package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/epochtime"
)

var (
	callerFlag string
	weightFlag uint16
)

var validatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Manage the validator set",
}

func decodeCallerAndTarget() (caller, target address.Address, err error) {
	caller, err = address.Decode(callerFlag)
	if err != nil {
		return caller, target, fmt.Errorf("invalid --caller: %w", err)
	}
	target, err = address.Decode(validatorFlag)
	if err != nil {
		return caller, target, fmt.Errorf("invalid --validator: %w", err)
	}
	return caller, target, nil
}

var validatorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered validators",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		vs, err := s.pool.ValidatorPool.All()
		if err != nil {
			return err
		}
		for _, v := range vs {
			fmt.Printf("%s\tweight=%d\tstaked=%s\tunstaked=%s\n", v.AccountID, v.Weight, v.StakedAmount, v.UnstakedAmount)
		}
		return nil
	},
}

var validatorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, target, err := decodeCallerAndTarget()
		if err != nil {
			return err
		}
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.pool.AddValidator(caller, target, weightFlag); err != nil {
			return err
		}
		return s.Save()
	},
}

var validatorRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a fully-drained, decommissioned validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, target, err := decodeCallerAndTarget()
		if err != nil {
			return err
		}
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.pool.RemoveValidator(caller, target); err != nil {
			return err
		}
		return s.Save()
	},
}

var validatorSetWeightCmd = &cobra.Command{
	Use:   "set-weight",
	Short: "Update a validator's target-share weight (0 decommissions it)",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, target, err := decodeCallerAndTarget()
		if err != nil {
			return err
		}
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.pool.UpdateValidatorWeight(caller, target, weightFlag); err != nil {
			return err
		}
		return s.Save()
	},
}

var validatorDrainUnstakeCmd = &cobra.Command{
	Use:   "drain-unstake",
	Short: "Begin unstaking a decommissioned validator's remaining stake",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, target, err := decodeCallerAndTarget()
		if err != nil {
			return err
		}
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		dispatched, err := s.engine.RunDrainUnstake(ctx, caller, target, fullOperatorBudget())
		if err != nil {
			return err
		}
		fmt.Printf("drain_unstake: dispatched=%v\n", dispatched)
		return s.Save()
	},
}

var validatorDrainWithdrawCmd = &cobra.Command{
	Use:   "drain-withdraw",
	Short: "Recover a decommissioned validator's unstaked balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, target, err := decodeCallerAndTarget()
		if err != nil {
			return err
		}
		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		dispatched, err := s.engine.RunDrainWithdraw(ctx, caller, target, fullOperatorBudget())
		if err != nil {
			return err
		}
		fmt.Printf("drain_withdraw: dispatched=%v\n", dispatched)
		return s.Save()
	},
}

func init() {
	validatorCmd.PersistentFlags().Uint64Var(&epochFlag, "epoch", 0, "current epoch number")
	validatorCmd.PersistentFlags().StringVar(&callerFlag, "caller", "", "manager or owner address")
	validatorCmd.PersistentFlags().StringVar(&validatorFlag, "validator", "", "validator address")

	validatorAddCmd.Flags().Uint16Var(&weightFlag, "weight", 0, "target-share weight")
	validatorSetWeightCmd.Flags().Uint16Var(&weightFlag, "weight", 0, "target-share weight (0 decommissions)")

	validatorCmd.AddCommand(
		validatorListCmd,
		validatorAddCmd,
		validatorRemoveCmd,
		validatorSetWeightCmd,
		validatorDrainUnstakeCmd,
		validatorDrainWithdrawCmd,
	)
}
