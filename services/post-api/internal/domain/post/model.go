package post

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/murmurhq/murmur-server/pkg/idgen"
)

const (
	MinContentLength = 3
	MaxContentLength = 5000
	MaxMediaRefs     = 10

	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*size well inside the int and SQL OFFSET range.
	MaxPage = 10_000_000
)

// Post is a content item owned by a single user.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	MediaIDs  []string  `json:"mediaIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateInput carries a create request after transport binding.
type CreateInput struct {
	UserID   string
	Content  string
	MediaIDs []string
}

// Page is one page of the newest-first listing.
type Page struct {
	Posts       []Post `json:"posts"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalPosts  int64  `json:"totalPosts"`
}

// Paging is a normalized page request.
type Paging struct {
	Page int
	Size int
}

// Offset returns the number of rows to skip.
func (p Paging) Offset() int {
	return (p.Page - 1) * p.Size
}

// ParsePaging normalizes raw page and limit values. Garbage and non-positive
// values fall back to the defaults, the size is capped at MaxPageSize and the
// page at MaxPage.
func ParsePaging(page, size int) Paging {
	if page <= 0 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Paging{Page: page, Size: size}
}

// TotalPages is ceil(total/size), and zero for an empty collection.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Validate checks the content bounds and the media references.
func (in CreateInput) Validate() string {
	n := utf8.RuneCountInString(strings.TrimSpace(in.Content))
	if n < MinContentLength || n > MaxContentLength {
		return "Content must be between 3 and 5000 characters"
	}
	if len(in.MediaIDs) > MaxMediaRefs {
		return "A post can reference at most 10 media items"
	}
	for _, id := range in.MediaIDs {
		if !idgen.IsValid(idgen.PrefixMedia, id) {
			return "Invalid media id: " + id
		}
	}
	return ""
}

func itemKey(id string) string {
	return "item:" + id
}

func listKey(p Paging) string {
	return "list:" + strconv.Itoa(p.Page) + ":" + strconv.Itoa(p.Size)
}

const listPattern = "list:*"
