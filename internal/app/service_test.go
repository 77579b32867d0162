package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/servhooks/internal/adapters/host"
	"github.com/okian/servhooks/internal/adapters/metadata"
	service "github.com/okian/servhooks/internal/app"
	"github.com/okian/servhooks/internal/domain/enrichment"
	"github.com/okian/servhooks/internal/domain/identity"
	"github.com/okian/servhooks/internal/domain/model"
	"github.com/okian/servhooks/internal/domain/role"
	"github.com/okian/servhooks/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeLookup struct {
	result enrichment.Result
}

func (f *fakeLookup) Lookup(ctx context.Context, id enrichment.ResourceID) enrichment.Result {
	return f.result
}

type fakeNotifier struct {
	mu       sync.Mutex
	accounts []string
}

func (f *fakeNotifier) NotifyDeleted(ctx context.Context, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, account)
	return nil
}

func (f *fakeNotifier) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.accounts...)
}

// fakeHost records every control action in order.
type fakeHost struct {
	mu      sync.Mutex
	actions []host.Action
}

func (f *fakeHost) record(a host.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return nil
}

func (f *fakeHost) NotifyPrivately(ctx context.Context, source, target, text string) error {
	return f.record(host.Action{Action: host.ActionNotice, Source: source, Target: target, Text: text})
}

func (f *fakeHost) Broadcast(ctx context.Context, source, channel, text string) error {
	return f.record(host.Action{Action: host.ActionPrivmsg, Source: source, Target: channel, Text: text})
}

func (f *fakeHost) ForceRename(ctx context.Context, sessionID, nick string) error {
	return f.record(host.Action{Action: host.ActionForceNick, SessionID: sessionID, Nick: nick})
}

func (f *fakeHost) TerminateSession(ctx context.Context, sessionID, reason string) error {
	return f.record(host.Action{Action: host.ActionKill, SessionID: sessionID, Reason: reason})
}

func (f *fakeHost) of(kind string) []host.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []host.Action
	for _, a := range f.actions {
		if a.Action == kind {
			out = append(out, a)
		}
	}
	return out
}

type fixture struct {
	svc      *service.Service
	host     *fakeHost
	notifier *fakeNotifier
	lookup   *fakeLookup
}

func newFixture(opts ...service.Option) fixture {
	f := fixture{
		host:     &fakeHost{},
		notifier: &fakeNotifier{},
		lookup:   &fakeLookup{result: enrichment.Success(enrichment.Video{Title: "Song", Author: "Band", Views: "42"})},
	}
	opts = append([]service.Option{service.WithManagedChannels(map[string]string{"#lobby": "BotServ"})}, opts...)
	f.svc = service.New(f.lookup, f.notifier, f.host, metadata.NewMemory(), opts...)
	return f
}

func dispatch(svc *service.Service, ev model.TriggerEvent) bool {
	proceed, err := svc.Dispatch(context.Background(), ev)
	So(err, ShouldBeNil)
	return proceed
}

func TestService_DispatchEnrichment(t *testing.T) {
	Convey("Given a service running jobs inline", t, func() {
		f := newFixture()

		Convey("When a managed channel links a video", func() {
			dispatch(f.svc, model.ChannelMessage{Channel: "#lobby", Sender: "alice", Text: "look https://youtu.be/dQw4w9WgXcQ"})

			Convey("Then the bot broadcasts the metadata line", func() {
				sent := f.host.of(host.ActionPrivmsg)
				So(sent, ShouldHaveLength, 1)
				So(sent[0].Source, ShouldEqual, "BotServ")
				So(sent[0].Target, ShouldEqual, "#lobby")
				So(sent[0].Text, ShouldEqual, enrichment.Banner+` "Song" by Band with 42 views.`)
			})
		})

		Convey("When the lookup finds nothing", func() {
			f.lookup.result = enrichment.NotFound()
			dispatch(f.svc, model.ChannelMessage{Channel: "#lobby", Sender: "alice", Text: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})

			Convey("Then only the sender is told", func() {
				So(f.host.of(host.ActionPrivmsg), ShouldBeEmpty)
				notices := f.host.of(host.ActionNotice)
				So(notices, ShouldHaveLength, 1)
				So(notices[0].Target, ShouldEqual, "alice")
				So(notices[0].Text, ShouldEqual, "No metadata found for the video.")
			})
		})

		Convey("When the channel has no bot", func() {
			dispatch(f.svc, model.ChannelMessage{Channel: "#random", Sender: "alice", Text: "https://youtu.be/dQw4w9WgXcQ"})
			So(f.host.of(host.ActionPrivmsg), ShouldBeEmpty)

			Convey("And a bot is then assigned", func() {
				dispatch(f.svc, model.BotAssignment{Channel: "#random", Bot: "DJ", Assigned: true})
				dispatch(f.svc, model.ChannelMessage{Channel: "#random", Sender: "alice", Text: "https://youtu.be/dQw4w9WgXcQ"})

				sent := f.host.of(host.ActionPrivmsg)
				So(sent, ShouldHaveLength, 1)
				So(sent[0].Source, ShouldEqual, "DJ")
			})
		})

		Convey("When a bot is unassigned", func() {
			dispatch(f.svc, model.BotAssignment{Channel: "#lobby", Bot: "BotServ", Assigned: false})
			dispatch(f.svc, model.ChannelMessage{Channel: "#lobby", Sender: "alice", Text: "https://youtu.be/dQw4w9WgXcQ"})
			So(f.host.of(host.ActionPrivmsg), ShouldBeEmpty)
		})
	})
}

func TestService_DispatchAccounts(t *testing.T) {
	Convey("Given a service with a ranked account", t, func() {
		f := newFixture()
		ctx := context.Background()

		_, err := f.svc.SetRole(ctx, role.SetRoleRequest{Source: "oper", Account: "alice", Role: "Admin", Privileged: true})
		So(err, ShouldBeNil)
		So(f.svc.AccountInfo(ctx, "alice"), ShouldResemble, []string{"Oper rank  : Admin"})

		dispatch(f.svc, model.SessionConnected{SessionID: "s1", Nick: "alice"})
		dispatch(f.svc, model.SessionAuthenticated{SessionID: "s1", Account: "alice", Nick: "alice"})

		Convey("When the account is deleted", func() {
			dispatch(f.svc, model.AccountDeleted{Account: "alice", Forced: true})

			Convey("Then the backend is notified and local state forgotten", func() {
				So(f.notifier.sent(), ShouldResemble, []string{"alice"})
				So(f.svc.AccountInfo(ctx, "alice"), ShouldBeEmpty)
				s, ok := f.svc.Registry().Session("s1")
				So(ok, ShouldBeTrue)
				So(s.Bound(), ShouldBeFalse)
			})
		})

		Convey("When an unprivileged caller sets a rank", func() {
			_, err := f.svc.SetRole(ctx, role.SetRoleRequest{Account: "alice", Role: "Root"})
			So(errors.Is(err, role.ErrNoPrivilege), ShouldBeTrue)
			So(f.svc.AccountInfo(ctx, "alice"), ShouldResemble, []string{"Oper rank  : Admin"})
		})
	})
}

func TestService_DispatchIdentity(t *testing.T) {
	Convey("Given a fresh service", t, func() {
		f := newFixture(service.WithIdentityOptions(identity.WithRandom(func(n int) int { return 6 })))
		reg := f.svc.Registry()
		dispatch(f.svc, model.SessionConnected{SessionID: "new", Nick: "phone"})

		Convey("When an older session is still bound to the account", func() {
			dispatch(f.svc, model.SessionConnected{SessionID: "ghost", Nick: "alice"})
			dispatch(f.svc, model.SessionAuthenticated{SessionID: "ghost", Account: "alice", Nick: "alice"})
			dispatch(f.svc, model.SessionAuthenticated{SessionID: "new", Account: "alice", Nick: "phone"})

			Convey("Then the ghost is killed and the new session takes the nick", func() {
				kills := f.host.of(host.ActionKill)
				So(kills, ShouldHaveLength, 1)
				So(kills[0].SessionID, ShouldEqual, "ghost")
				So(kills[0].Reason, ShouldEqual, identity.GhostReason)
				_, alive := reg.Session("ghost")
				So(alive, ShouldBeFalse)

				self, _ := reg.Session("new")
				So(self.Nick, ShouldEqual, "alice")
				So(reg.FindByAccount("alice"), ShouldHaveLength, 1)
			})
		})

		Convey("When a stranger holds the account's nick", func() {
			dispatch(f.svc, model.SessionConnected{SessionID: "squat", Nick: "Alice"})
			dispatch(f.svc, model.SessionAuthenticated{SessionID: "new", Account: "alice", Nick: "phone"})

			Convey("Then the stranger is moved to a guest nick", func() {
				squat, _ := reg.Session("squat")
				So(squat.Nick, ShouldEqual, identity.DefaultGuestPrefix+"7")
				So(f.host.of(host.ActionKill), ShouldBeEmpty)

				self, _ := reg.Session("new")
				So(self.Nick, ShouldEqual, "alice")
			})
		})

		Convey("When the session logs out", func() {
			dispatch(f.svc, model.SessionAuthenticated{SessionID: "new", Account: "alice", Nick: "phone"})
			proceed := dispatch(f.svc, model.SessionLoggingOut{SessionID: "new"})

			Convey("Then it proceeds under a guest nick and is unbound", func() {
				So(proceed, ShouldBeTrue)
				self, _ := reg.Session("new")
				So(strings.HasPrefix(self.Nick, identity.DefaultGuestPrefix), ShouldBeTrue)
				So(self.Bound(), ShouldBeFalse)
			})
		})

		Convey("When a nick change is mirrored", func() {
			dispatch(f.svc, model.NickChanged{SessionID: "new", Nick: "tablet"})
			s, _ := reg.Session("new")
			So(s.Nick, ShouldEqual, "tablet")
		})
	})
}

type unknownEvent struct{}

func (unknownEvent) Kind() model.EventKind { return "mystery" }

func TestService_DispatchUnknown(t *testing.T) {
	Convey("Given an event type the service does not know", t, func() {
		f := newFixture()
		proceed, err := f.svc.Dispatch(context.Background(), unknownEvent{})

		So(proceed, ShouldBeFalse)
		So(errors.Is(err, service.ErrUnknownEvent), ShouldBeTrue)
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture(service.WithWorkerCount(2), service.WithQueueSize(16))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		So(f.svc.Start(ctx), ShouldBeNil)
		So(f.svc.Start(ctx), ShouldBeNil)

		stats := f.svc.GetStats()
		So(stats["started"], ShouldEqual, true)
		So(stats["worker_count"], ShouldEqual, 2)
		So(stats["queue_size"], ShouldEqual, 16)

		Convey("When jobs are queued and the service stops", func() {
			dispatch(f.svc, model.AccountDeleted{Account: "bob"})
			dispatch(f.svc, model.ChannelMessage{Channel: "#lobby", Sender: "carol", Text: "https://youtu.be/dQw4w9WgXcQ"})

			So(f.svc.Stop(ctx), ShouldBeNil)

			Convey("Then queued work has been drained", func() {
				So(f.notifier.sent(), ShouldResemble, []string{"bob"})
				So(f.host.of(host.ActionPrivmsg), ShouldHaveLength, 1)
				So(f.svc.GetStats()["started"], ShouldEqual, false)
				So(f.svc.Stop(ctx), ShouldBeNil)
			})

			Convey("And an account deleted afterwards is still reported", func() {
				dispatch(f.svc, model.AccountDeleted{Account: "dave"})
				So(f.notifier.sent(), ShouldResemble, []string{"bob", "dave"})
			})
		})
	})
}
