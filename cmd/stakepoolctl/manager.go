package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

var (
	beneficiaryFlag string
	bpsFlag         uint64
	baseStakeFlag   uint64
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Owner/manager administrative actions: beneficiaries, pause state, base-stake floors",
}

var managerSetBeneficiaryCmd = &cobra.Command{
	Use:   "set-beneficiary",
	Short: "Set (or, with --bps 0, remove) a reward beneficiary's basis-point cut",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := address.Decode(callerFlag)
		if err != nil {
			return fmt.Errorf("invalid --caller: %w", err)
		}
		beneficiary, err := address.Decode(beneficiaryFlag)
		if err != nil {
			return fmt.Errorf("invalid --beneficiary: %w", err)
		}

		ctx := context.Background()
		s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.pool.SetBeneficiary(caller, beneficiary, bpsFlag); err != nil {
			return err
		}
		return s.Save()
	},
}

var managerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause Deposit/Stake/Unstake (Withdraw remains available)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(true)
	},
}

var managerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPaused(false)
	},
}

func setPaused(paused bool) error {
	caller, err := address.Decode(callerFlag)
	if err != nil {
		return fmt.Errorf("invalid --caller: %w", err)
	}

	ctx := context.Background()
	s, err := openSession(ctx, epochtime.EpochTime(epochFlag))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.pool.SetPaused(caller, paused); err != nil {
		return err
	}
	return s.Save()
}

var managerSetBaseStakeCmd = &cobra.Command{
	Use:   "set-base-stake",
	Short: "Set a validator's base_stake_amount floor, carried into target() ahead of its weighted share",
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

		if err := s.pool.UpdateValidatorBaseStake(caller, target, quantity.NewFromUint64(baseStakeFlag)); err != nil {
			return err
		}
		return s.Save()
	},
}

func init() {
	managerCmd.PersistentFlags().Uint64Var(&epochFlag, "epoch", 0, "current epoch number")
	managerCmd.PersistentFlags().StringVar(&callerFlag, "caller", "", "manager or owner address")

	managerSetBeneficiaryCmd.Flags().StringVar(&beneficiaryFlag, "beneficiary", "", "beneficiary address")
	managerSetBeneficiaryCmd.Flags().Uint64Var(&bpsFlag, "bps", 0, "basis-point cut of ingested rewards (0 removes the beneficiary)")

	managerSetBaseStakeCmd.Flags().StringVar(&validatorFlag, "validator", "", "validator address")
	managerSetBaseStakeCmd.Flags().Uint64Var(&baseStakeFlag, "amount", 0, "base_stake_amount floor")

	managerCmd.AddCommand(
		managerSetBeneficiaryCmd,
		managerPauseCmd,
		managerResumeCmd,
		managerSetBaseStakeCmd,
	)
}
