package main

import (
	"context"
	"time"

	"github.com/gatherly/gatherly-server/config"
	"github.com/gatherly/gatherly-server/controllers"
	"github.com/gatherly/gatherly-server/models"
	"github.com/gatherly/gatherly-server/providers/bluesky"
	"github.com/gatherly/gatherly-server/providers/email"
	"github.com/gatherly/gatherly-server/repos"
	"github.com/gatherly/gatherly-server/server"
	"github.com/gatherly/gatherly-server/services"
	"github.com/gatherly/gatherly-server/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
)

func main() {

	opts := []fx.Option{}
	opts = append(opts, provideOptions()...)
	opts = append(opts, fx.Invoke(run))

	app := fx.New(opts...)

	app.Run()
}

func provideOptions() []fx.Option {
	return []fx.Option{
		fx.Invoke(utils.ConfigureLogger),
		fx.Provide(config.Parse),
		fx.Invoke(func(config *config.Config) {
			utils.InitSharedConstants(*utils.ParsePublicKey(config.JwtPublicKey))
		}),
		fx.Provide(config.ProvidePostgres),
		fx.Provide(config.ProvideSmtp),
		fx.Provide(config.ProvideRedis),
		fx.Provide(server.CreateServer),
		fx.Provide(utils.GetDefaultRouter),
		fx.Invoke(models.InitModelRegistrations),
		fx.Provide(repos.NewCommunityRepo),
		fx.Provide(repos.NewMembershipRepo),
		fx.Provide(repos.NewInvitationRepo),
		fx.Provide(repos.NewEventRepo),
		fx.Provide(repos.NewGuestRepo),
		fx.Provide(repos.NewUserRepo),
		fx.Provide(email.NewNotifier),
		fx.Provide(bluesky.NewClient),
		fx.Provide(bindStores()...),
		fx.Provide(services.NewAuthGate),
		fx.Provide(services.NewInvitationService),
		fx.Provide(services.NewGuestService),
		fx.Provide(services.NewMemberService),
		fx.Invoke(controllers.RegisterCommunityController),
		fx.Invoke(controllers.RegisterEventController),
		fx.Invoke(controllers.RegisterRsvpController),
	}
}

func bindStores() []interface{} {
	return []interface{}{
		func(r *repos.CommunityRepo) services.CommunityStore { return r },
		func(r *repos.MembershipRepo) services.Roster { return r },
		func(r *repos.InvitationRepo) services.InvitationStore { return r },
		func(r *repos.EventRepo) services.EventStore { return r },
		func(r *repos.GuestRepo) services.GuestStore { return r },
		func(r *repos.UserRepo) services.UserStore { return r },
		func(n *email.Notifier) services.Notifier { return n },
		func(c *bluesky.Client) services.SocialGraph { return c },
	}
}

func run(app *fiber.App, config *config.Config, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			errChan := make(chan error)

			go func() {
				errChan <- app.Listen(config.GetPort())
			}()

			select {
			case err := <-errChan:
				return err
			case <-time.After(100 * time.Millisecond):
				return nil
			}
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}
