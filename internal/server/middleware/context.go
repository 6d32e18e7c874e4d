package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

// AppUser is the authenticated caller of a request.
type AppUser struct {
	UserID string
}

// App bundles the shared clients handlers need: the database pool, the
// message queue channel, the JWKS keyfunc, and the file store.
type App struct {
	DBConn       *pgxpool.Pool
	Queue        *amqp091.Channel
	Key          *keyfunc.Keyfunc
	S3           *s3.Client
	MasterAPIKey string
	MasterUserID string
}

// AppContext extends the echo context with the shared app clients and the
// authenticated user.
type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	key *keyfunc.Keyfunc,
	s3Client *s3.Client,
	masterAPIKey string,
	masterUserID string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn:       db,
				Queue:        queue,
				Key:          key,
				S3:           s3Client,
				MasterAPIKey: masterAPIKey,
				MasterUserID: masterUserID,
			}
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
