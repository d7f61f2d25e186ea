// Package runner binds a base URL and shared settings to a request function.
//
// Each call of the returned Func creates a fresh builder, lets the caller
// describe one request, dispatches it immediately and hands back a
// response.Parser for assertions and extraction:
//
//	request := runner.New("http://localhost:8080")
//	body, err := request(func(b *builder.Builder) *builder.Builder {
//		return b.Get("/users").Query(map[string]any{"id": []int{1, 2}})
//	}).Status(200).Text(ctx)
package runner
