package util

import "github.com/gin-gonic/gin"

const ActorKey = "actor"

// Actor 当前作答者，Identifier 在同一作答者的多次请求间保持不变
type Actor struct {
	Identifier    string
	FullName      string
	Email         string
	Authenticated bool
}

func GetActor(c *gin.Context) *Actor {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	a, _ := v.(*Actor)
	return a
}
