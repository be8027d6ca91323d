package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/n7pkt/flbridge/pkg/client"
)

var (
	addr    = flag.String("addr", "localhost:4533", "Bridge rigctld address")
	timeout = flag.Duration("timeout", 3*time.Second, "Command timeout")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		showHelp()
		return
	}

	c := client.NewClient(*addr, *timeout)

	var err error
	switch args[0] {
	case "freq":
		if len(args) > 1 {
			err = setFrequency(c, args[1])
		} else {
			err = getFrequency(c)
		}
	case "mode":
		if len(args) > 1 {
			err = setMode(c, args[1])
		} else {
			err = getMode(c)
		}
	case "raw":
		if len(args) < 2 {
			err = fmt.Errorf("raw requires a command")
		} else {
			err = sendRaw(c, strings.Join(args[1:], " "))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getFrequency(c *client.Client) error {
	freq, err := c.GetFrequency()
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", freq)
	return nil
}

func setFrequency(c *client.Client, arg string) error {
	freq, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid frequency %q", arg)
	}
	return c.SetFrequency(freq)
}

func getMode(c *client.Client) error {
	mode, err := c.GetMode()
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", mode)
	return nil
}

func setMode(c *client.Client, mode string) error {
	return c.SetMode(strings.ToUpper(mode))
}

func sendRaw(c *client.Client, command string) error {
	lines, err := c.Send(command)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func showHelp() {
	fmt.Println("flbridgectl - flbridge control tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -addr <host:port>    Bridge rigctld address (default: localhost:4533)")
	fmt.Println("  -timeout <duration>  Command timeout (default: 3s)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  freq                 Get current frequency in Hz")
	fmt.Println("  freq <hz>            Set frequency")
	fmt.Println("  mode                 Get current mode")
	fmt.Println("  mode <name>          Set mode (USB, LSB, CW, AM, FM, ...)")
	fmt.Println("  raw <command>        Send a raw rigctld command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s freq 14074000\n", os.Args[0])
	fmt.Printf("  %s mode USB\n", os.Args[0])
	fmt.Printf("  %s raw '\\dump_state'\n", os.Args[0])
}
