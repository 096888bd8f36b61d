package utils

import (
	"TicketMarket/consts"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetAccountID reads the authenticated account id and writes a 401 when the
// middleware did not set one.
func GetAccountID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get(consts.ContextAccountID)
	if !exists {
		ResponseError(c, http.StatusUnauthorized, consts.MsgUnauthorized, "account_id missing from context")
		return primitive.NilObjectID, false
	}

	idStr, ok := raw.(string)
	if !ok {
		ResponseError(c, http.StatusUnauthorized, consts.MsgUnauthorized, "account_id is not a string")
		return primitive.NilObjectID, false
	}

	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		ResponseError(c, http.StatusUnauthorized, consts.MsgUnauthorized, "account_id is not an ObjectID")
		return primitive.NilObjectID, false
	}

	return id, true
}

// ViewerID is the account behind an optionally authenticated request, or
// the nil id for anonymous callers.
func ViewerID(c *gin.Context) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(c.GetString(consts.ContextAccountID))
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

func GetAccountEmail(c *gin.Context) string {
	return c.GetString(consts.ContextAccountEmail)
}

func GetAccountName(c *gin.Context) string {
	return c.GetString(consts.ContextAccountName)
}

func GetRoles(c *gin.Context) []string {
	return c.GetStringSlice(consts.ContextRoles)
}

// ParamObjectID parses a path parameter and writes a 400 on failure.
func ParamObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		ResponseError(c, http.StatusBadRequest, consts.MsgInvalidInput, name+" is not a valid id")
		return primitive.NilObjectID, false
	}
	return id, true
}
