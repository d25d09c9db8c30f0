package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/armctl/internal/log"
	"github.com/gwillem/armctl/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const servoCount = 6

type SetupCommand struct {
	SkipCalibration bool `long:"skip-calibration" description:"Only assign ports and roles, keep existing calibration"`
}

func (c *SetupCommand) Execute(args []string) error {
	log.Init(opts.LogLevel)

	fmt.Println(headerStyle.Render("armctl Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	// Keep board, poses and tuning from an earlier setup.
	config, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		config = robot.DefaultConfig()
	}

	// Step 1: Scan for arms and assign roles
	scanForArms(config)

	// Step 2: Calibrate each identified arm
	for _, a := range []struct {
		arm  *robot.ArmConfig
		role robot.Role
	}{
		{&config.Player, robot.Player},
		{&config.Spectator, robot.Spectator},
	} {
		if a.arm.Port == "" || (c.SkipCalibration && a.arm.Calibration.Complete()) {
			continue
		}
		fmt.Println()
		fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Calibrating %s arm (%s) ━━━", a.role, a.arm.Limb)))
		fmt.Println()
		calibrateArm(a.arm)

		// Save after each arm so a later failure keeps earlier work
		if err := config.SaveTo(opts.Config); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration is incomplete:\n%v\n", err)
		os.Exit(1)
	}
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Try it with: " + headerStyle.Render("armctl run standby"))

	return nil
}

func scanForArms(config *robot.Config) {
	fmt.Println("Scanning for robot arms...")
	fmt.Println()

	arms := findArms()

	if len(arms) == 0 {
		fmt.Println("No SO-101 arms found.")
		fmt.Println("Make sure your arms are connected and powered on.")
		os.Exit(1)
	}

	fmt.Printf("Found %d arm(s). Let's identify them...\n\n", len(arms))

	var player, spectator *robot.ArmConfig
	for _, arm := range arms {
		if player != nil && spectator != nil {
			arm.bus.Close()
			continue
		}
		role, limb := identifyArmWithWiggle(arm, player == nil, spectator == nil)
		switch role {
		case robot.Player:
			config.Player.Port = arm.port
			config.Player.Limb = limb
			player = &config.Player
		case robot.Spectator:
			config.Spectator.Port = arm.port
			config.Spectator.Limb = limb
			spectator = &config.Spectator
		}
	}

	fmt.Println()

	if player == nil {
		fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
		fmt.Println("Player arm not identified.")
		fmt.Println("The player arm is required to pick and place tokens.")
		os.Exit(1)
	}
	if spectator == nil {
		config.Spectator.Port = ""
		config.Spectator.Calibration = nil
		config.Spectator.Limb = otherLimb(config.Player.Limb)
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Arms identified:"))
	fmt.Printf("  Player:    %s (%s)\n", config.Player.Port, config.Player.Limb)
	if spectator != nil {
		fmt.Printf("  Spectator: %s (%s)\n", config.Spectator.Port, config.Spectator.Limb)
	} else {
		fmt.Println("  Spectator: none")
	}
}

func otherLimb(l robot.Limb) robot.Limb {
	if l == robot.Left {
		return robot.Right
	}
	return robot.Left
}

func calibrateArm(armConfig *robot.ArmConfig) {
	fmt.Printf("Calibrating %s arm on %s\n", armConfig.Limb, armConfig.Port)
	fmt.Println()

	bus, servos, err := connectToArm(armConfig.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to arm: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so user can move arm freely
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	motors := robot.AllMotors()

	// Zero pose: joint angles are measured from here
	fmt.Println(subHeaderStyle.Render("Set zero pose"))
	waitForUser("Move the arm to its zero pose: upright, gripper pointing down.")

	homing := make(map[robot.MotorName]int)
	for i, motorName := range motors {
		pos, err := servoMap[i+1].Position(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", motorName, err)
			os.Exit(1)
		}
		homing[motorName] = pos - robot.CenterPosition
	}

	// Record min/max by tracking while user moves arm
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Open and close the gripper fully.")
	fmt.Println()

	curPositions := make(map[robot.MotorName]int)
	minPositions := make(map[robot.MotorName]int)
	maxPositions := make(map[robot.MotorName]int)
	for i, motorName := range motors {
		pos, _ := servoMap[i+1].Position(ctx)
		curPositions[motorName] = pos
		minPositions[motorName] = pos
		maxPositions[motorName] = pos
	}

	model := newCalibrationModel(motors, servoMap, homing, curPositions, minPositions, maxPositions)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}

	cm := finalModel.(calibrationModel)
	calibration := make(robot.Calibration, len(motors))
	for i, motorName := range motors {
		calibration[motorName] = robot.MotorCalibration{
			ID:           i + 1,
			HomingOffset: homing[motorName],
			RangeMin:     cm.minPositions[motorName],
			RangeMax:     cm.maxPositions[motorName],
		}
	}

	armConfig.Calibration = calibration
	fmt.Println()
	fmt.Printf("%s arm calibrated.\n", armConfig.Limb)
	log.L().Info("arm calibrated", "limb", armConfig.Limb, "port", armConfig.Port)
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findArms() []armInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var arms []armInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, servos, err := connectToArm(port)
		if err != nil {
			log.L().Debug("no arm on port", "port", port, "err", err)
			continue
		}
		fmt.Printf("  Found SO-101 arm on %s\n", port)
		arms = append(arms, armInfo{port: port, servos: servos, bus: bus})
	}

	return arms
}

func isSOArm(servos []feetech.FoundServo) bool {
	if len(servos) != servoCount {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= servoCount; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}

// identifyArmWithWiggle moves the arm's base a little and asks which role
// and limb the wiggling arm has.
func identifyArmWithWiggle(arm armInfo, needPlayer, needSpectator bool) (robot.Role, robot.Limb) {
	defer arm.bus.Close()

	ctx := context.Background()

	// Find servo ID 1 (shoulder_pan) for wiggling
	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == 1 {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}

	if servo == nil {
		return "", ""
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return "", ""
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return "", ""
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)

	// Wiggle: single gentle, slow movement
	wiggleAmount := 30
	moveTimeMs := 500
	settle := time.Duration(moveTimeMs+100) * time.Millisecond
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(settle)
	}

	servo.Disable(ctx)

	var options []huh.Option[string]
	if needPlayer {
		options = append(options, huh.NewOption("Player (picks and places tokens)", string(robot.Player)))
	}
	if needSpectator {
		options = append(options, huh.NewOption("Spectator (stays out of the camera's view)", string(robot.Spectator)))
	}
	options = append(options, huh.NewOption("Skip this arm", "skip"))

	var role, limb string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Which arm is on %s?", arm.port)).
				Description("The arm that just wiggled").
				Options(options...).
				Value(&role),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which side of the board is it mounted on?").
				Options(
					huh.NewOption("Left", string(robot.Left)),
					huh.NewOption("Right", string(robot.Right)),
				).
				Value(&limb),
		).WithHideFunc(func() bool { return role == "skip" }),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if role == "skip" {
		return "", ""
	}

	return robot.Role(role), robot.Limb(limb)
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, 1, servoCount)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if !isSOArm(servos) {
		bus.Close()
		return nil, nil, fmt.Errorf("not an SO-101 arm (expected %d servos with IDs 1-%d)", servoCount, servoCount)
	}

	return bus, servos, nil
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

// calibrationModel tracks each joint's range of motion while the user moves
// the unpowered arm. Angles are shown relative to the recorded zero pose.
type calibrationModel struct {
	motors       []robot.MotorName
	servoMap     map[int]*feetech.Servo
	homing       map[robot.MotorName]int
	curPositions map[robot.MotorName]int
	minPositions map[robot.MotorName]int
	maxPositions map[robot.MotorName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(
	motors []robot.MotorName,
	servoMap map[int]*feetech.Servo,
	homing map[robot.MotorName]int,
	curPositions, minPositions, maxPositions map[robot.MotorName]int,
) calibrationModel {
	return calibrationModel{
		motors:       motors,
		servoMap:     servoMap,
		homing:       homing,
		curPositions: curPositions,
		minPositions: minPositions,
		maxPositions: maxPositions,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, motorName := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[motorName] = pos
			m.minPositions[motorName] = min(m.minPositions[motorName], pos)
			m.maxPositions[motorName] = max(m.maxPositions[motorName], pos)
		}
		return m, tick()
	}

	return m, nil
}

// minSpanRadians is the range of motion below which a joint is flagged as
// not yet explored.
const minSpanRadians = math.Pi / 4

// jointRow is one line of the calibration table.
type jointRow struct {
	name            robot.MotorName
	raw             int
	angle, min, max float64
	span            float64
}

func (m calibrationModel) rows() []jointRow {
	rows := make([]jointRow, 0, len(m.motors))
	for _, name := range m.motors {
		zero := robot.MotorCalibration{HomingOffset: m.homing[name]}
		r := jointRow{
			name:  name,
			raw:   m.curPositions[name],
			angle: zero.Radians(m.curPositions[name]),
			min:   zero.Radians(m.minPositions[name]),
			max:   zero.Radians(m.maxPositions[name]),
		}
		r.span = r.max - r.min
		rows = append(rows, r)
	}
	return rows
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	jointStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	angleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	spanGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	spanLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	joints := m.rows()
	cells := make([][]string, 0, len(joints))
	for _, j := range joints {
		cells = append(cells, []string{
			string(j.name),
			fmt.Sprintf("%d", j.raw),
			fmt.Sprintf("%+.2f", j.angle),
			fmt.Sprintf("%+.2f", j.min),
			fmt.Sprintf("%+.2f", j.max),
			fmt.Sprintf("%.0f°", j.span*180/math.Pi),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Raw", "Angle (rad)", "Min (rad)", "Max (rad)", "Span").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch col {
			case 0:
				return jointStyle
			case 2:
				return angleStyle
			case 5:
				if row >= 0 && row < len(joints) && joints[row].span > minSpanRadians {
					return spanGoodStyle
				}
				return spanLowStyle
			default:
				return cellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Angles are relative to the zero pose. Press Enter when done"))

	return sb.String()
}
