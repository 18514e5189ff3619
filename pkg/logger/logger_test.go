package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func withBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	output = buf
	t.Cleanup(func() { output = os.Stdout })
	return buf
}

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with the text format", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with the json format", func() {
			So(InitWithFormat("json"), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithFormat("xml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown log format")
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a json logger writing to a buffer", t, func() {
		buf := withBuffer(t)
		So(InitWithFormat("json"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Named("service").Info(ctx, "attendance recorded",
				String("name", "Alice"),
				Bool("recorded", true),
				Duration("cooldown", 10*time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then the line carries the logger name and fields", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"attendance recorded"`)
				So(out, ShouldContainSubstring, `"logger":"service"`)
				So(out, ShouldContainSubstring, `"name":"Alice"`)
				So(out, ShouldContainSubstring, `"recorded":true`)
				So(out, ShouldContainSubstring, `"source":"logger_test.go`)
			})
		})

		Convey("When a nested name is used", func() {
			Named("api").Named("events").Warn(ctx, "slow")
			So(buf.String(), ShouldContainSubstring, `"logger":"api.events"`)
		})

		Convey("When the level filters debug output", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Debug(ctx, "hidden")
			Get().Info(ctx, "hidden too")
			So(buf.Len(), ShouldEqual, 0)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)
		for _, lvl := range []string{"debug", "info", "", "WARN", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() { l.Named("x").Error(context.Background(), "dropped") }, ShouldNotPanic)
	})
}
