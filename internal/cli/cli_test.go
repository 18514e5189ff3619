package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/attendance/internal/adapters/export"
	"github.com/okian/attendance/internal/adapters/repository"
	"github.com/okian/attendance/internal/config"
	"github.com/okian/attendance/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func event(seq uint64, id, name, date, clock string) model.AttendanceEvent {
	at, _ := time.Parse(model.DateLayout+" "+model.TimeLayout, date+" "+clock)
	return model.AttendanceEvent{
		SequenceID:  seq,
		IdentityID:  id,
		DisplayName: name,
		Date:        date,
		Time:        clock,
		RecordedAt:  at,
	}
}

// seedStore writes a snapshot to a file store and points the config at it.
func seedStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fs, err := repository.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	registered := time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC)
	snap := repository.Snapshot{
		Identities: []model.Identity{
			{ID: "a1", DisplayName: "Alice", Embeddings: []model.Descriptor{{0, 0}, {0.1, 0}}, RegisteredAt: registered},
			{ID: "b1", DisplayName: `Bob "The Builder"`, Embeddings: []model.Descriptor{{5, 5}}, RegisteredAt: registered},
		},
		Events: []model.AttendanceEvent{
			event(1, "a1", "Alice", "2024-03-01", "09:00:00"),
			event(2, "b1", `Bob "The Builder"`, "2024-03-01", "09:05:00"),
			event(3, "a1", "Alice", "2024-03-02", "08:30:00"),
			event(4, "ghost", "Ghost", "2024-03-02", "10:00:00"),
		},
	}
	if err := repository.NewSnapshotStore(fs).Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}

	t.Setenv(config.EnvFile, "")
	t.Setenv("ATTENDANCE_STORE_BACKEND", config.StoreFile)
	t.Setenv("ATTENDANCE_STORE_PATH", dir)
	t.Setenv("ATTENDANCE_DESCRIPTOR_LENGTH", "2")
	t.Setenv("ATTENDANCE_TIMEZONE", "UTC")
	return dir
}

func execute(args ...string) (string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExportCommand(t *testing.T) {
	seedStore(t)

	Convey("Given a persisted attendance log", t, func() {
		Convey("When exporting everything to stdout", func() {
			out, err := execute("export")

			Convey("Then the CSV is newest first and drops orphaned events", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, strings.Join([]string{
					export.Header,
					`"Alice","2024-03-02","08:30:00"`,
					`"Bob ""The Builder""","2024-03-01","09:05:00"`,
					`"Alice","2024-03-01","09:00:00"`,
				}, "\n")+"\n")
			})
		})

		Convey("When exporting one day to a file", func() {
			path := filepath.Join(t.TempDir(), "day.csv")
			_, err := execute("export", "--date", "2024-03-01", "--name", "bo", "--out", path)
			So(err, ShouldBeNil)

			data, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			rows, err := export.ParseCSV(string(data))
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, []export.Row{{Name: `Bob "The Builder"`, Date: "2024-03-01", Time: "09:05:00"}})

			Convey("Then verify accepts it", func() {
				out, err := execute("verify", path)
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "1 rows")
			})
		})

		Convey("When the date flag is malformed", func() {
			_, err := execute("export", "--date", "01/03/2024")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "YYYY-MM-DD")
		})
	})
}

func TestListCommands(t *testing.T) {
	seedStore(t)

	Convey("Given a persisted attendance log", t, func() {
		Convey("When listing identities", func() {
			out, err := execute("identities")
			So(err, ShouldBeNil)

			lines := strings.Split(strings.TrimSpace(out), "\n")
			So(len(lines), ShouldEqual, 3)
			So(lines[1], ShouldContainSubstring, "Alice")
			So(lines[1], ShouldContainSubstring, "2")
		})

		Convey("When listing events with a limit", func() {
			out, err := execute("events", "--limit", "2")
			So(err, ShouldBeNil)

			lines := strings.Split(strings.TrimSpace(out), "\n")
			So(len(lines), ShouldEqual, 3)
			So(lines[1], ShouldStartWith, "3 ")
			So(lines[2], ShouldStartWith, "2 ")
		})

		Convey("When filtering events by name", func() {
			out, err := execute("events", "--name", "ALI")
			So(err, ShouldBeNil)
			So(out, ShouldNotContainSubstring, "Bob")
			So(strings.Count(out, "Alice"), ShouldEqual, 2)
		})
	})
}

func TestVerifyCommand(t *testing.T) {
	Convey("Given a file that is not an attendance export", t, func() {
		path := filepath.Join(t.TempDir(), "bad.csv")
		So(os.WriteFile(path, []byte("Who,When\n\"x\",\"y\"\n"), 0o600), ShouldBeNil)

		_, err := execute("verify", path)
		So(err, ShouldNotBeNil)
	})

	Convey("Given a missing file", t, func() {
		_, err := execute("verify", filepath.Join(t.TempDir(), "nope.csv"))
		So(err, ShouldNotBeNil)
	})
}

func TestBrokenStore(t *testing.T) {
	Convey("Given a corrupt snapshot", t, func() {
		dir := seedStore(t)
		So(os.WriteFile(filepath.Join(dir, repository.EventsKey), []byte("{"), 0o600), ShouldBeNil)

		_, err := execute("events")
		So(err, ShouldNotBeNil)
	})
}
