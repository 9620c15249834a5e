package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/etpu-project/etpu-go/pkg/soc"
)

func newConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	s, err := soc.Build(soc.DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	return New(s, &buf), &buf
}

func run(c *Console, buf *bytes.Buffer, line string) string {
	buf.Reset()
	c.Exec(context.Background(), line)
	return buf.String()
}

func TestWriteThenRead(t *testing.T) {
	c, buf := newConsole(t)

	if out := run(c, buf, "write 0x10000010 0xcafe"); !strings.Contains(out, "0x10000010 <- 0x0000cafe") {
		t.Errorf("write output = %q", out)
	}
	if out := run(c, buf, "r 0x10000010"); !strings.Contains(out, "0x10000010: 0x0000cafe") {
		t.Errorf("read output = %q", out)
	}
}

func TestWriteLanes(t *testing.T) {
	c, buf := newConsole(t)
	run(c, buf, "write 0x10000000 0x11223344")
	run(c, buf, "write 0x10000000 0xaabbccdd 0x1")
	if out := run(c, buf, "read 0x10000000"); !strings.Contains(out, "0x112233dd") {
		t.Errorf("read output = %q", out)
	}
}

func TestUnmappedReadReportsError(t *testing.T) {
	c, buf := newConsole(t)
	if out := run(c, buf, "read 0x70000000"); !strings.Contains(out, "Error:") {
		t.Errorf("output = %q", out)
	}
}

func TestBadArguments(t *testing.T) {
	c, buf := newConsole(t)
	for _, line := range []string{"read", "read zz", "read 0x2", "write 0", "write 0 1 0x1f", "ref maybe", "tick -1"} {
		if out := run(c, buf, line); !strings.Contains(out, "Error:") {
			t.Errorf("%q: output = %q", line, out)
		}
	}
}

func TestRegions(t *testing.T) {
	c, buf := newConsole(t)
	out := run(c, buf, "regions")
	for _, want := range []string{"rom", "sram", "wfg", "0x30000000", "io"} {
		if !strings.Contains(out, want) {
			t.Errorf("regions missing %q:\n%s", want, out)
		}
	}
}

func TestStatusShowsPinsAndAccelerator(t *testing.T) {
	c, buf := newConsole(t)
	run(c, buf, "write 0x60000000 0xa5")
	out := run(c, buf, "status")
	for _, want := range []string{"locked: true", "leds: 10100101", "accel:"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestClockControl(t *testing.T) {
	c, buf := newConsole(t)
	if out := run(c, buf, "tick 10"); !strings.Contains(out, "cycle 10") {
		t.Errorf("tick output = %q", out)
	}

	run(c, buf, "ext on")
	run(c, buf, "tick 5")
	if out := run(c, buf, "status"); !strings.Contains(out, "reset: true") {
		t.Errorf("status under external reset:\n%s", out)
	}
	run(c, buf, "ext off")
	if out := run(c, buf, "reset 4"); !strings.Contains(out, "reset released") {
		t.Errorf("reset output = %q", out)
	}
}

func TestQuitAndUnknown(t *testing.T) {
	c, buf := newConsole(t)
	if !c.Exec(context.Background(), "quit") {
		t.Error("quit did not request exit")
	}
	if c.Exec(context.Background(), "") {
		t.Error("empty line requested exit")
	}
	if out := run(c, buf, "dance"); !strings.Contains(out, "Unknown command: dance") {
		t.Errorf("output = %q", out)
	}
	if out := run(c, buf, "help"); !strings.Contains(out, "SoC Commands:") {
		t.Errorf("help output = %q", out)
	}
}
