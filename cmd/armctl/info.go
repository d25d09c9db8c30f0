package main

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armctl/internal/log"
	"github.com/gwillem/armctl/pkg/robot"
)

type InfoCommand struct {
	NoScan bool `long:"no-scan" description:"Skip the serial port scan"`
}

func (c *InfoCommand) Execute(args []string) error {
	log.Init(opts.LogLevel)

	fmt.Println(headerStyle.Render("armctl Info"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	if !c.NoScan {
		fmt.Println(subHeaderStyle.Render("Serial ports"))
		arms := findArms()
		for _, a := range arms {
			a.bus.Close()
		}
		if len(arms) == 0 {
			fmt.Println(dimStyle.Render("  no SO-101 arms found"))
		}
		fmt.Println()
	}

	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Printf("No configuration in %s. Run 'armctl setup' first.\n", opts.Config)
		return nil
	}

	fmt.Println(subHeaderStyle.Render("Configured arms"))
	ctx := context.Background()
	for _, role := range []robot.Role{robot.Player, robot.Spectator} {
		armCfg := cfg.Player
		if role == robot.Spectator {
			armCfg = cfg.Spectator
		}
		if armCfg.Port == "" {
			fmt.Printf("  %s: not configured\n", role)
			continue
		}
		fmt.Printf("  %s: %s on %s\n", role, armCfg.Limb, armCfg.Port)

		joints, gripper, err := readArm(ctx, armCfg)
		if err != nil {
			fmt.Println(dimStyle.Render("    " + err.Error()))
			continue
		}
		fmt.Println(renderJoints(joints))
		fmt.Printf("    gripper: %.0f (open %.0f, closed %.0f)\n", gripper, armCfg.GripperOpen, armCfg.GripperClosed)
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Services"))
	fmt.Printf("  IK:       %s\n", cfg.Services.IKURL)
	fmt.Printf("  Feedback: %s\n", cfg.Services.FeedbackURL)
	fmt.Printf("  Listen:   %s\n", cfg.Services.Listen)
	return nil
}

// readArm reads the joint angles and the normalized gripper opening.
func readArm(ctx context.Context, cfg robot.ArmConfig) (robot.JointAngles, float64, error) {
	arm, err := robot.NewArm(ctx, cfg)
	if err != nil {
		return nil, 0, err
	}
	defer arm.Close()

	joints, err := arm.ReadJoints(ctx)
	if err != nil {
		return nil, 0, err
	}
	gripper, err := arm.ReadGripper(ctx)
	if err != nil {
		return nil, 0, err
	}
	return joints, gripper, nil
}

func renderJoints(joints robot.JointAngles) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	rows := make([][]string, 0, len(joints))
	for i, name := range robot.ArmJoints() {
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%.3f", joints[i]),
			fmt.Sprintf("%.1f", joints[i]*180/math.Pi),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Radians", "Degrees").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
			}
			return cellStyle
		}).
		Render()
}
