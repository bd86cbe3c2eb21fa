package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/milepost/internal/auth"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHMACVerifier(t *testing.T) {
	ctx := context.Background()

	Convey("Given an HMAC verifier", t, func() {
		verifier := auth.NewHMACVerifier("test-secret")

		Convey("When verifying a token it signed", func() {
			token, err := auth.Sign("test-secret", "user-42", time.Minute)
			So(err, ShouldBeNil)

			subject, err := verifier.Verify(ctx, token)

			Convey("Then the subject comes back", func() {
				So(err, ShouldBeNil)
				So(subject, ShouldEqual, "user-42")
			})
		})

		Convey("When the token is signed with another secret", func() {
			token, err := auth.Sign("wrong-secret", "user-42", time.Minute)
			So(err, ShouldBeNil)

			_, err = verifier.Verify(ctx, token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token is expired", func() {
			token, err := auth.Sign("test-secret", "user-42", -time.Minute)
			So(err, ShouldBeNil)

			_, err = verifier.Verify(ctx, token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token is garbage", func() {
			_, err := verifier.Verify(ctx, "not.a.token")
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})
	})
}

func TestPassthrough(t *testing.T) {
	ctx := context.Background()

	Convey("Given the passthrough verifier", t, func() {
		var verifier auth.Passthrough

		Convey("When given any non-empty credential", func() {
			subject, err := verifier.Verify(ctx, "user-7")
			So(err, ShouldBeNil)
			So(subject, ShouldEqual, "user-7")
		})

		Convey("When given an empty credential", func() {
			_, err := verifier.Verify(ctx, "")
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})
	})
}
