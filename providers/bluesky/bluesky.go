// Package bluesky is a minimal XRPC client for the follower and posting
// endpoints the invitation flows use. Follower lists are cached in redis
// so bulk invites do not hammer the appview.
package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gatherly/gatherly-server/config"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
)

type Follower struct {
	Did    string `json:"did"`
	Handle string `json:"handle"`
}

type Client struct {
	serviceUrl  string
	pdsUrl      string
	accessToken string
	timeout     time.Duration
	cacheTtl    time.Duration
	redis       *redis.Client
}

func NewClient(config *config.Config, redis *redis.Client) *Client {
	return &Client{
		serviceUrl:  config.BlueskyConfig.ServiceUrl,
		pdsUrl:      config.BlueskyConfig.PdsUrl,
		accessToken: config.BlueskyConfig.AccessToken,
		timeout:     time.Duration(config.BlueskyConfig.TimeoutSeconds) * time.Second,
		cacheTtl:    time.Duration(config.BlueskyConfig.CacheTtlMinutes) * time.Minute,
		redis:       redis,
	}
}

// GetCachedFollowers returns the actor's followers, served from redis
// when a fresh copy exists.
func (c *Client) GetCachedFollowers(ctx context.Context, actor string) ([]Follower, error) {
	key := "bsky:followers:" + actor

	if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
		followers := make([]Follower, 0)
		if err := json.Unmarshal([]byte(cached), &followers); err == nil {
			return followers, nil
		}
	}

	followers, err := c.fetchFollowers(actor)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(followers); err == nil {
		c.redis.Set(ctx, key, encoded, c.cacheTtl)
	}

	return followers, nil
}

func (c *Client) fetchFollowers(actor string) ([]Follower, error) {
	a := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(a)

	res := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(res)

	req := a.Request()
	req.Header.SetMethod(fiber.MethodGet)
	req.SetRequestURI(c.serviceUrl + "/xrpc/app.bsky.graph.getFollowers?limit=100&actor=" + actor)

	if err := a.Parse(); err != nil {
		return nil, err
	}

	code, body, errArr := a.SetResponse(res).Timeout(c.timeout).Bytes()
	if len(errArr) != 0 {
		return nil, errArr[0]
	}
	if code != fiber.StatusOK {
		return nil, errors.New("getFollowers failed: " + string(body))
	}

	var parsed struct {
		Followers []Follower `json:"followers"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	return parsed.Followers, nil
}

type postRecord struct {
	Type      string   `json:"$type"`
	Text      string   `json:"text"`
	Langs     []string `json:"langs,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

// CreatePost publishes an invitation post mentioning the invitees.
func (c *Client) CreatePost(ctx context.Context, actor, text string, mentions []string) error {
	a := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(a)

	res := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(res)

	for _, mention := range mentions {
		text += " @" + mention
	}

	body, err := json.Marshal(createRecordRequest{
		Repo:       actor,
		Collection: "app.bsky.feed.post",
		Record: postRecord{
			Type:      "app.bsky.feed.post",
			Text:      text,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}

	req := a.Request()
	req.Header.SetMethod(fiber.MethodPost)
	req.SetRequestURI(c.pdsUrl + "/xrpc/com.atproto.repo.createRecord")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.SetBody(body)

	if err := a.Parse(); err != nil {
		return err
	}

	code, resBody, errArr := a.SetResponse(res).Timeout(c.timeout).Bytes()
	if len(errArr) != 0 {
		return errArr[0]
	}
	if code != fiber.StatusOK {
		return errors.New("createRecord failed: " + string(resBody))
	}

	return nil
}

// PseudoEmail derives the namespaced dedup key used when inviting an
// external id that has no real address yet.
func PseudoEmail(externalId string) string {
	sanitized := strings.NewReplacer(":", "-", "@", "-").Replace(strings.ToLower(externalId))
	return sanitized + "@bsky.invalid"
}
