package commands

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/TinyScreen/internal/config"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Manage display profiles",
	Long: `A profile is a named set of rendering flags: the display driver, its
connection and options, and how frames are rendered onto it. play starts
from the active profile.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runProfileList,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a profile",
	Example: `  # A profile for a 128x32 SSD1306 on I2C bus 1
  tinyscreen profile create "Desk OLED" --vo name=ssd1306:device=i2c?1:options=height=32

  # Start from the active profile and switch to the new one
  tinyscreen profile create "Halftone" --dither 2 --use`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileCreate,
}

var profileUseCmd = &cobra.Command{
	Use:   "use ID",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileUse,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var profileUse bool

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	addRenderFlags(profileCreateCmd.Flags())
	profileCreateCmd.Flags().BoolVar(&profileUse, "use", false, "make the new profile active")
}

func runProfileList(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	active := configMgr.Get().ActiveProfileID

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tDISPLAY\tDEVICE\tVIEWMODE\tDITHER")
	for _, p := range configMgr.ListProfiles() {
		mark := ""
		if p.ID == active {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n", mark, p.ID, p.Name, p.Flags.Name, p.Flags.Device, p.Flags.ViewMode, p.Flags.Dither)
	}
	return w.Flush()
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	flags, err := resolveFlags(cmd.Flags(), configMgr)
	if errors.Is(err, errHelpShown) {
		return nil
	}
	if err != nil {
		return err
	}

	p, err := configMgr.CreateProfile(args[0], flags)
	if err != nil {
		return err
	}
	if profileUse {
		if err := configMgr.SetActiveProfile(p.ID); err != nil {
			return err
		}
	}
	fmt.Printf("Profile created: %s\n", p.ID)
	return nil
}

func runProfileUse(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	if err := configMgr.SetActiveProfile(args[0]); err != nil {
		return err
	}
	fmt.Printf("Active profile: %s\n", args[0])
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	if args[0] == config.DefaultProfileID {
		return fmt.Errorf("cannot delete the default profile")
	}
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	if err := configMgr.DeleteProfile(args[0]); err != nil {
		return err
	}
	fmt.Printf("Profile deleted: %s\n", args[0])
	return nil
}
