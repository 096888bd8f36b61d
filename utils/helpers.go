package utils

import (
	"TicketMarket/dto"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GenerateUUIDTransaction returns ids like JOB-20260501-1A2B3C4D.
func GenerateUUIDTransaction(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String()[:8], "-", ""))
	t := time.Now().Format("20060102")
	return fmt.Sprintf("%s-%s-%s", prefix, t, id)
}

// PageParams reads page_no and page_size from the query string.
func PageParams(c *gin.Context) (pageNo, pageSize int) {
	pageNo, err := strconv.Atoi(c.DefaultQuery("page_no", "1"))
	if err != nil || pageNo < 1 {
		pageNo = 1
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageNo, pageSize
}

func Paginate[T any](items []T, pageNo, pageSize int) ([]T, *dto.Pagination) {
	total := len(items)
	pageCount := (total + pageSize - 1) / pageSize
	start := (pageNo - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return items[start:end], &dto.Pagination{
		PageNo:     pageNo,
		PageSize:   pageSize,
		PageCount:  pageCount,
		TotalItems: total,
	}
}
