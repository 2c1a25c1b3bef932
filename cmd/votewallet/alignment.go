package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"votewallet/internal/alignment"
	"votewallet/internal/types"
)

var alignmentCmd = &cobra.Command{
	Use:   "alignment",
	Short: "Compute and query political alignment",
}

var alignRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Re-aggregate alignment vectors from activity history",
	RunE:  runAlignRecompute,
}

var (
	alignUserID  string
	alignCity    string
	alignUserVec = types.AlignmentVector{}
)

var alignSetUserCmd = &cobra.Command{
	Use:   "set-user",
	Short: "Set a user's alignment preferences",
	Example: `  votewallet alignment set-user --user alice --liberal 80 --green 20`,
	RunE:  runAlignSetUser,
}

var alignMatchCmd = &cobra.Command{
	Use:   "match [business name]",
	Short: "Score businesses against a user's preferences",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAlignMatch,
}

func init() {
	alignSetUserCmd.Flags().StringVarP(&alignUserID, "user", "u", "", "user ID")
	alignSetUserCmd.MarkFlagRequired("user")
	alignSetUserCmd.Flags().Float64Var(&alignUserVec.Liberal, "liberal", 0, "liberal axis 0-100")
	alignSetUserCmd.Flags().Float64Var(&alignUserVec.Conservative, "conservative", 0, "conservative axis 0-100")
	alignSetUserCmd.Flags().Float64Var(&alignUserVec.Libertarian, "libertarian", 0, "libertarian axis 0-100")
	alignSetUserCmd.Flags().Float64Var(&alignUserVec.Green, "green", 0, "green axis 0-100")
	alignSetUserCmd.Flags().Float64Var(&alignUserVec.Centrist, "centrist", 0, "centrist axis 0-100")

	alignMatchCmd.Flags().StringVarP(&alignUserID, "user", "u", "", "user ID")
	alignMatchCmd.MarkFlagRequired("user")
	alignMatchCmd.Flags().StringVar(&alignCity, "city", "", "restrict to one city")

	alignmentCmd.AddCommand(alignRecomputeCmd)
	alignmentCmd.AddCommand(alignSetUserCmd)
	alignmentCmd.AddCommand(alignMatchCmd)
}

func runAlignRecompute(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	policy := buildPolicy()
	businesses, err := s.ListBusinesses(0)
	if err != nil {
		return err
	}

	computed := 0
	for _, b := range businesses {
		activities, err := s.ListActivitiesByBusiness(b.ID)
		if err != nil {
			return err
		}
		if len(activities) == 0 {
			continue
		}
		vector, confidence, err := policy.Aggregate(cmd.Context(), activities)
		if err != nil {
			return fmt.Errorf("aggregate %s: %w", b.Name, err)
		}
		if err := s.UpsertBusinessAlignment(&types.BusinessAlignment{
			BusinessID: b.ID,
			Vector:     vector,
			Confidence: confidence,
			Source:     policy.Name(),
		}); err != nil {
			return err
		}
		computed++
	}

	fmt.Printf("Recomputed alignment for %d of %d businesses (policy: %s)\n",
		computed, len(businesses), policy.Name())
	return nil
}

func runAlignSetUser(cmd *cobra.Command, args []string) error {
	for _, axis := range types.AxisNames() {
		v := alignUserVec.Axis(axis)
		if v < 0 || v > 100 {
			return fmt.Errorf("axis %s = %v outside 0-100", axis, v)
		}
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.UpsertUserAlignment(&types.UserAlignment{
		UserID: alignUserID,
		Vector: alignUserVec,
	}); err != nil {
		return err
	}
	fmt.Printf("Preferences saved for %s\n", alignUserID)
	return nil
}

func runAlignMatch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.GetUserAlignment(alignUserID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no preferences for user %s; run alignment set-user first", alignUserID)
	}

	businesses, err := s.ListBusinesses(0)
	if err != nil {
		return err
	}

	matched := 0
	for _, b := range businesses {
		if alignCity != "" && !strings.EqualFold(b.City, alignCity) {
			continue
		}
		if len(args) == 1 && !strings.EqualFold(b.Name, args[0]) {
			continue
		}
		if err := printMatch(s, user, b); err != nil {
			return err
		}
		matched++
	}
	if matched == 0 {
		if len(args) == 1 {
			return fmt.Errorf("business %q not found", args[0])
		}
		fmt.Println("No businesses in the directory yet; run sync first.")
	}
	return nil
}

func printMatch(s matchStore, user *types.UserAlignment, b *types.Business) error {
	ba, err := s.GetBusinessAlignment(b.ID)
	if err != nil {
		return err
	}
	if ba == nil {
		fmt.Printf("%-40s   (no alignment data)\n", b.Name)
		return nil
	}
	score := alignment.MatchScore(user.Vector, ba.Vector)
	fmt.Printf("%-40s %3d%%  (confidence %.0f%%, source %s)\n",
		b.Name, score, ba.Confidence*100, ba.Source)
	return nil
}

type matchStore interface {
	GetBusinessAlignment(businessID string) (*types.BusinessAlignment, error)
}
