package utils

import (
	"TicketMarket/consts"
	"TicketMarket/dto"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var listMethod = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func GetSuccessMessageByMethod(method string) string {
	if !slices.Contains(listMethod, method) {
		return ""
	}

	message := ""
	switch method {
	case http.MethodGet:
		message = consts.MsgGetSuccess
	case http.MethodPost:
		message = consts.MsgCreateSuccess
	case http.MethodPut, http.MethodPatch:
		message = consts.MsgUpdateSuccess
	case http.MethodDelete:
		message = consts.MsgDeleteSuccess
	}

	return message
}

func GetErrorMessageByMethod(method string) string {
	switch method {
	case http.MethodGet:
		return consts.MsgGetErr
	case http.MethodPost:
		return consts.MsgCreateErr
	case http.MethodPut, http.MethodPatch:
		return consts.MsgUpdateErr
	case http.MethodDelete:
		return consts.MsgDeleteErr
	default:
		return consts.MsgSystemErr
	}
}

func ResponseSuccess(c *gin.Context, status int, msg string, data interface{}, pagination *dto.Pagination) {
	if strings.TrimSpace(msg) == "" {
		msg = GetSuccessMessageByMethod(c.Request.Method)
	}

	c.JSON(status, dto.ApiResponse{
		Status:     status,
		Message:    msg,
		Data:       data,
		Pagination: pagination,
	})
}

func ResponseError(c *gin.Context, status int, msg string, err interface{}) {
	if strings.TrimSpace(msg) == "" {
		msg = GetErrorMessageByMethod(c.Request.Method)
	}
	c.JSON(status, dto.ApiResponse{
		Status:  status,
		Message: msg,
		Error:   err,
	})
}

// AbortError writes the error envelope and stops the handler chain.
func AbortError(c *gin.Context, status int, msg string, err interface{}) {
	ResponseError(c, status, msg, err)
	c.Abort()
}
