package metadata_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/servhooks/internal/adapters/metadata"
	"github.com/smartystreets/goconvey/convey"
)

func exerciseStore(ctx context.Context, s metadata.Store) {
	convey.Convey("When nothing is stored", func() {
		_, ok, err := s.Get(ctx, "alice", "private:network_role")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ok, convey.ShouldBeFalse)
	})

	convey.Convey("When a value is set and overwritten", func() {
		convey.So(s.Set(ctx, "alice", "private:network_role", "Helper"), convey.ShouldBeNil)
		convey.So(s.Set(ctx, "alice", "private:network_role", "Admin"), convey.ShouldBeNil)
		convey.So(s.Set(ctx, "bob", "private:network_role", "Oper"), convey.ShouldBeNil)

		convey.Convey("Then the latest value is read back per account", func() {
			v, ok, err := s.Get(ctx, "alice", "private:network_role")
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(v, convey.ShouldEqual, "Admin")

			v, _, _ = s.Get(ctx, "bob", "private:network_role")
			convey.So(v, convey.ShouldEqual, "Oper")
		})

		convey.Convey("Then deleting removes only that value", func() {
			convey.So(s.Delete(ctx, "alice", "private:network_role"), convey.ShouldBeNil)
			convey.So(s.Delete(ctx, "alice", "private:network_role"), convey.ShouldBeNil)

			_, ok, _ := s.Get(ctx, "alice", "private:network_role")
			convey.So(ok, convey.ShouldBeFalse)
			_, ok, _ = s.Get(ctx, "bob", "private:network_role")
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	convey.Convey("Given a memory store", t, func() {
		s, err := metadata.Open(context.Background(), metadata.Options{})
		convey.So(err, convey.ShouldBeNil)
		defer s.Close()

		exerciseStore(context.Background(), s)
	})
}

func TestRedisStore(t *testing.T) {
	convey.Convey("Given a redis store", t, func() {
		mr := miniredis.RunT(t)
		ctx := context.Background()

		s, err := metadata.Open(ctx, metadata.Options{Driver: metadata.DriverRedis, RedisAddr: mr.Addr()})
		convey.So(err, convey.ShouldBeNil)
		defer s.Close()

		exerciseStore(ctx, s)

		convey.Convey("When a value is set it lands in the account hash", func() {
			convey.So(s.Set(ctx, "carol", "private:network_role", "Root"), convey.ShouldBeNil)
			convey.So(mr.HGet("servhooks:account:carol", "private:network_role"), convey.ShouldEqual, "Root")
		})
	})

	convey.Convey("Given an unreachable redis", t, func() {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := metadata.Open(context.Background(), metadata.Options{Driver: metadata.DriverRedis, RedisAddr: addr})
		convey.So(errors.Is(err, metadata.ErrOpen), convey.ShouldBeTrue)
	})
}

func TestSQLiteStore(t *testing.T) {
	convey.Convey("Given a sqlite store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "servhooks.db")

		s, err := metadata.Open(ctx, metadata.Options{Driver: metadata.DriverSQLite, SQLitePath: path})
		convey.So(err, convey.ShouldBeNil)
		defer s.Close()

		exerciseStore(ctx, s)
	})

	convey.Convey("Given a value written before a restart", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "servhooks.db")

		first, err := metadata.NewSQLite(ctx, path)
		convey.So(err, convey.ShouldBeNil)
		convey.So(first.Set(ctx, "dave", "private:network_role", "Staff"), convey.ShouldBeNil)
		convey.So(first.Close(), convey.ShouldBeNil)

		second, err := metadata.NewSQLite(ctx, path)
		convey.So(err, convey.ShouldBeNil)
		defer second.Close()

		v, ok, err := second.Get(ctx, "dave", "private:network_role")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, "Staff")
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	convey.Convey("Given an unknown driver", t, func() {
		_, err := metadata.Open(context.Background(), metadata.Options{Driver: "etcd"})
		convey.So(errors.Is(err, metadata.ErrUnknownDriver), convey.ShouldBeTrue)
	})
}
