package router_test

import (
	"fmt"

	"github.com/IntellionInc/logos/router"
)

func ExampleParseTable() {
	tree, err := router.ParseTable(map[string]any{
		"posts": map[string]any{
			"get":  "Posts => index",
			"post": "Posts => create",
			":id": map[string]any{
				"get":   "Posts => show",
				"patch": "Posts => update",
			},
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, r := range router.New(tree, nil).Routes() {
		fmt.Println(r)
	}
	// Output:
	// GET    /posts -> Posts => index
	// POST   /posts -> Posts => create
	// GET    /posts/{id} -> Posts => show
	// PATCH  /posts/{id} -> Posts => update
}
