package suite

import (
	"context"
	"fmt"

	"github.com/FairForge/gorest-e2e/internal/contract"
	"github.com/FairForge/gorest-e2e/internal/dates"
	"github.com/FairForge/gorest-e2e/internal/gorest"
	"github.com/FairForge/gorest-e2e/internal/model"
	"github.com/FairForge/gorest-e2e/internal/scenario"
)

// flow is one run of the user scenario in a format. Ids created along the
// way live in the scenario state under format-prefixed keys.
type flow struct {
	format gorest.Format
	fx     Fixture
	anon   *gorest.Client
	auth   *gorest.Client
	now    func() string
}

func (f *flow) key(name string) string { return string(f.format) + "." + name }

func (f *flow) id(st *scenario.State, name string) int { return st.GetInt(f.key(name)) }

func (f *flow) userID(st *scenario.State) (int, error) {
	id := f.id(st, "user_id")
	if id == 0 {
		return 0, errNoUser
	}
	return id, nil
}

func step(name string, fn func(ctx context.Context, st *scenario.State) error) scenario.Step {
	return scenario.Step{Name: name, Action: fn}
}

// UserFlow creates a user with a post, a comment and a todo, reads them back
// through every listing, updates and deletes the user, checks everything is
// gone and creates the user again. Setup removes a user left over from an
// earlier run; teardown deletes the one created last.
func (s *Suite) UserFlow(format gorest.Format) scenario.Scenario {
	f := &flow{
		format: format,
		fx:     s.fixture(format),
		anon:   s.anon.WithFormat(format),
		auth:   s.auth.WithFormat(format),
		now:    func() string { return dates.DueDate(s.opts.Now()) },
	}

	return scenario.Scenario{
		Name:        fmt.Sprintf("user flow (%s)", format),
		Description: "user lifecycle with nested posts, comments and todos",
		Setup:       f.removeLeftovers,
		Teardown:    f.cleanup,
		Steps: []scenario.Step{
			step("wrong URL", f.wrongURL),
			step("create without token", f.createWithoutToken),
			step("create with missing field", f.createMissingGender),
			step("create with invalid field", f.createInvalidEmail),
			step("create user", f.createUser),
			step("create duplicate user", f.createDuplicate),
			step("get user", f.getUser),
			step("public list hides the user", f.publicList),
			step("authenticated list shows the user", f.authenticatedList),
			step("second page of 100 users", f.secondPage),
			step("per_page above 100 is not honored", f.perPageCap),
			step("non-existent user", f.missingUser),
			step("create post", f.createPost),
			step("get post", f.getPost),
			step("list posts", f.listPosts),
			step("create comment", f.createComment),
			step("get comment", f.getComment),
			step("list comments", f.listComments),
			step("create todo", f.createTodo),
			step("list user todos", f.listUserTodos),
			step("list todos", f.listTodos),
			step("update user", f.updateUser),
			step("get updated user", f.getUpdatedUser),
			step("list updated user", f.listUpdatedUser),
			step("delete user", f.deleteUser),
			step("deleted user is gone", f.deletedUser),
			step("users list is empty", f.emptyUsers),
			step("user posts list is empty", f.emptyUserPosts),
			step("posts list is empty", f.emptyPosts),
			step("post comments list is empty", f.emptyPostComments),
			step("comments list is empty", f.emptyComments),
			step("user todos list is empty", f.emptyUserTodos),
			step("todos list is empty", f.emptyTodos),
			step("create user after deletion", f.createUser),
		},
	}
}

func (f *flow) removeLeftovers(ctx context.Context, _ *scenario.State) error {
	resp, err := f.auth.ListUsers(ctx, gorest.Filter("email", f.fx.User.Email))
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusOK().Err(); err != nil {
		return err
	}
	users, err := resp.Users()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email != f.fx.User.Email {
			continue
		}
		if err := deleteIfPresent(ctx, f.auth, u.ID); err != nil {
			return err
		}
	}
	return nil
}

func (f *flow) cleanup(ctx context.Context, st *scenario.State) error {
	id, err := f.userID(st)
	if err != nil {
		return nil
	}
	return deleteIfPresent(ctx, f.auth, id)
}

func (f *flow) wrongURL(ctx context.Context, _ *scenario.State) error {
	path := "/wrongUrl"
	if f.format == gorest.FormatXML {
		path += ".xml"
	}
	resp, err := f.anon.GET(ctx, path)
	if err != nil {
		return err
	}
	return resp.Expect().StatusNotFound().HTML().BodyContains("Page Not Found").Err()
}

func (f *flow) createWithoutToken(ctx context.Context, _ *scenario.State) error {
	resp, err := f.anon.CreateUser(ctx, f.fx.User)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusUnauthorized().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.SimpleMessage); err != nil {
		return err
	}
	return expectText(resp, "Authentication failed")
}

func (f *flow) expectRejected(resp *gorest.Response, field, message string) error {
	if err := resp.Expect().StatusUnprocessable().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.ValidationError); err != nil {
		return err
	}
	return expectDetail(resp, field, message)
}

func (f *flow) createMissingGender(ctx context.Context, _ *scenario.State) error {
	p := f.fx.User
	p.Gender = ""
	resp, err := f.auth.CreateUser(ctx, p)
	if err != nil {
		return err
	}
	return f.expectRejected(resp, "gender", "can't be blank, can be male of female")
}

func (f *flow) createInvalidEmail(ctx context.Context, _ *scenario.State) error {
	p := f.fx.User
	p.Email = "invalidEmail"
	resp, err := f.auth.CreateUser(ctx, p)
	if err != nil {
		return err
	}
	return f.expectRejected(resp, "email", "is invalid")
}

func (f *flow) createUser(ctx context.Context, st *scenario.State) error {
	resp, err := f.auth.CreateUser(ctx, f.fx.User)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusCreated().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.User); err != nil {
		return err
	}
	u, err := resp.User()
	if err != nil {
		return err
	}
	st.Set(f.key("user_id"), u.ID)
	return matchUser(f.fx.User, u)
}

func (f *flow) createDuplicate(ctx context.Context, _ *scenario.State) error {
	resp, err := f.auth.CreateUser(ctx, f.fx.User)
	if err != nil {
		return err
	}
	return f.expectRejected(resp, "email", "has already been taken")
}

// readUser fetches the created user and compares it to want.
func (f *flow) readUser(ctx context.Context, st *scenario.State, want gorest.UserParams) error {
	id, err := f.userID(st)
	if err != nil {
		return err
	}
	resp, err := f.auth.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusOK().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.User); err != nil {
		return err
	}
	u, err := resp.User()
	if err != nil {
		return err
	}
	if u.ID != id {
		return fmt.Errorf("expected user %d, got %d", id, u.ID)
	}
	return matchUser(want, u)
}

func (f *flow) getUser(ctx context.Context, st *scenario.State) error {
	return f.readUser(ctx, st, f.fx.User)
}

// users lists users and checks the common response properties.
func (f *flow) users(ctx context.Context, c *gorest.Client, opts gorest.ListOptions) (*gorest.Response, []model.User, error) {
	resp, err := c.ListUsers(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Expect().StatusOK().InFormat(f.format).Err(); err != nil {
		return nil, nil, err
	}
	if err := conforms(resp, contract.Users); err != nil {
		return nil, nil, err
	}
	users, err := resp.Users()
	if err != nil {
		return nil, nil, err
	}
	return resp, users, nil
}

func (f *flow) publicList(ctx context.Context, st *scenario.State) error {
	_, users, err := f.users(ctx, f.anon, gorest.ListOptions{})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("expected public users, got none")
	}
	if f.format == gorest.FormatJSON && len(users) != 10 {
		return fmt.Errorf("expected a default page of 10 users, got %d", len(users))
	}
	if _, found := findUser(users, f.id(st, "user_id")); found {
		return fmt.Errorf("user %d is listed without a token", f.id(st, "user_id"))
	}
	return nil
}

func (f *flow) authenticatedList(ctx context.Context, st *scenario.State) error {
	id, err := f.userID(st)
	if err != nil {
		return err
	}
	_, users, err := f.users(ctx, f.auth, gorest.ListOptions{})
	if err != nil {
		return err
	}
	u, found := findUser(users, id)
	if !found {
		return fmt.Errorf("user %d missing from the authenticated list", id)
	}
	return matchUser(f.fx.User, u)
}

func (f *flow) secondPage(ctx context.Context, _ *scenario.State) error {
	resp, users, err := f.users(ctx, f.auth, gorest.ListOptions{Page: 2, PerPage: 100})
	if err != nil {
		return err
	}
	if err := resp.Expect().Header(gorest.HeaderPaginationPage, "2").Err(); err != nil {
		return err
	}
	if len(users) != 100 {
		return fmt.Errorf("expected 100 users, got %d", len(users))
	}
	return nil
}

func (f *flow) perPageCap(ctx context.Context, _ *scenario.State) error {
	_, users, err := f.users(ctx, f.auth, gorest.ListOptions{PerPage: 101})
	if err != nil {
		return err
	}
	if len(users) == 101 {
		return fmt.Errorf("per_page=101 returned 101 users")
	}
	return nil
}

func (f *flow) expectNotFound(resp *gorest.Response) error {
	if err := resp.Expect().StatusNotFound().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.SimpleMessage); err != nil {
		return err
	}
	return expectText(resp, "Resource not found")
}

func (f *flow) missingUser(ctx context.Context, _ *scenario.State) error {
	resp, err := f.auth.GetUser(ctx, 0)
	if err != nil {
		return err
	}
	return f.expectNotFound(resp)
}

func (f *flow) createPost(ctx context.Context, st *scenario.State) error {
	userID, err := f.userID(st)
	if err != nil {
		return err
	}
	resp, err := f.auth.CreateUserPost(ctx, userID, f.fx.Post)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusCreated().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.Post); err != nil {
		return err
	}
	p, err := resp.Post()
	if err != nil {
		return err
	}
	st.Set(f.key("post_id"), p.ID)
	return matchPost(f.fx.Post, userID, p)
}

// posts lists posts and checks the common response properties.
func (f *flow) posts(resp *gorest.Response, err error) ([]model.Post, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.Expect().StatusOK().InFormat(f.format).Err(); err != nil {
		return nil, err
	}
	if err := conforms(resp, contract.Posts); err != nil {
		return nil, err
	}
	return resp.Posts()
}

// findPost looks for the created post in posts.
func (f *flow) findPost(st *scenario.State, posts []model.Post) error {
	id := f.id(st, "post_id")
	for _, p := range posts {
		if p.ID == id {
			return matchPost(f.fx.Post, f.id(st, "user_id"), p)
		}
	}
	return fmt.Errorf("post %d not listed", id)
}

func (f *flow) getPost(ctx context.Context, st *scenario.State) error {
	posts, err := f.posts(f.auth.ListUserPosts(ctx, f.id(st, "user_id"), gorest.Filter("id", f.id(st, "post_id"))))
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return fmt.Errorf("post %d not found", f.id(st, "post_id"))
	}
	return f.findPost(st, posts[:1])
}

func (f *flow) listPosts(ctx context.Context, st *scenario.State) error {
	posts, err := f.posts(f.auth.ListPosts(ctx, gorest.Filter("user_id", f.id(st, "user_id"))))
	if err != nil {
		return err
	}
	return f.findPost(st, posts)
}

func (f *flow) createComment(ctx context.Context, st *scenario.State) error {
	postID := f.id(st, "post_id")
	resp, err := f.auth.CreatePostComment(ctx, postID, f.fx.Comment)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusCreated().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.Comment); err != nil {
		return err
	}
	c, err := resp.Comment()
	if err != nil {
		return err
	}
	st.Set(f.key("comment_id"), c.ID)
	return matchComment(f.fx.Comment, postID, c)
}

func (f *flow) comments(resp *gorest.Response, err error) ([]model.Comment, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.Expect().StatusOK().InFormat(f.format).Err(); err != nil {
		return nil, err
	}
	if err := conforms(resp, contract.Comments); err != nil {
		return nil, err
	}
	return resp.Comments()
}

func (f *flow) findComment(st *scenario.State, comments []model.Comment) error {
	id := f.id(st, "comment_id")
	for _, c := range comments {
		if c.ID == id {
			return matchComment(f.fx.Comment, f.id(st, "post_id"), c)
		}
	}
	return fmt.Errorf("comment %d not listed", id)
}

func (f *flow) getComment(ctx context.Context, st *scenario.State) error {
	comments, err := f.comments(f.auth.ListPostComments(ctx, f.id(st, "post_id"), gorest.Filter("id", f.id(st, "comment_id"))))
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		return fmt.Errorf("comment %d not found", f.id(st, "comment_id"))
	}
	return f.findComment(st, comments[:1])
}

func (f *flow) listComments(ctx context.Context, st *scenario.State) error {
	comments, err := f.comments(f.auth.ListComments(ctx, gorest.Filter("post_id", f.id(st, "post_id"))))
	if err != nil {
		return err
	}
	return f.findComment(st, comments)
}

func (f *flow) createTodo(ctx context.Context, st *scenario.State) error {
	userID, err := f.userID(st)
	if err != nil {
		return err
	}
	todo := f.fx.Todo
	if todo.DueOn == "" {
		todo.DueOn = f.now()
	}
	st.Set(f.key("todo_due_on"), todo.DueOn)

	resp, err := f.auth.CreateUserTodo(ctx, userID, todo)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusCreated().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.Todo); err != nil {
		return err
	}
	t, err := resp.Todo()
	if err != nil {
		return err
	}
	st.Set(f.key("todo_id"), t.ID)
	return matchTodo(todo, userID, t)
}

func (f *flow) todos(resp *gorest.Response, err error) ([]model.Todo, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.Expect().StatusOK().InFormat(f.format).Err(); err != nil {
		return nil, err
	}
	if err := conforms(resp, contract.Todos); err != nil {
		return nil, err
	}
	return resp.Todos()
}

func (f *flow) findTodo(st *scenario.State, todos []model.Todo) error {
	want := f.fx.Todo
	want.DueOn = st.GetString(f.key("todo_due_on"))
	id := f.id(st, "todo_id")
	for _, t := range todos {
		if t.ID == id {
			return matchTodo(want, f.id(st, "user_id"), t)
		}
	}
	return fmt.Errorf("todo %d not listed", id)
}

func (f *flow) listUserTodos(ctx context.Context, st *scenario.State) error {
	todos, err := f.todos(f.auth.ListUserTodos(ctx, f.id(st, "user_id"), gorest.ListOptions{}))
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		return fmt.Errorf("user %d has no todos", f.id(st, "user_id"))
	}
	return f.findTodo(st, todos[:1])
}

func (f *flow) listTodos(ctx context.Context, st *scenario.State) error {
	todos, err := f.todos(f.auth.ListTodos(ctx, gorest.Filter("user_id", f.id(st, "user_id"))))
	if err != nil {
		return err
	}
	return f.findTodo(st, todos)
}

func (f *flow) updated() gorest.UserParams {
	u := f.fx.User
	u.Status = f.fx.UpdatedStatus
	return u
}

func (f *flow) updateUser(ctx context.Context, st *scenario.State) error {
	id, err := f.userID(st)
	if err != nil {
		return err
	}
	want := f.updated()
	if want == f.fx.User {
		return fmt.Errorf("fixture update does not change the user")
	}
	resp, err := f.auth.UpdateUser(ctx, id, want)
	if err != nil {
		return err
	}
	if err := resp.Expect().StatusOK().InFormat(f.format).Err(); err != nil {
		return err
	}
	if err := conforms(resp, contract.User); err != nil {
		return err
	}
	u, err := resp.User()
	if err != nil {
		return err
	}
	return matchUser(want, u)
}

func (f *flow) getUpdatedUser(ctx context.Context, st *scenario.State) error {
	return f.readUser(ctx, st, f.updated())
}

func (f *flow) listUpdatedUser(ctx context.Context, st *scenario.State) error {
	id, err := f.userID(st)
	if err != nil {
		return err
	}
	_, users, err := f.users(ctx, f.auth, gorest.Filter("id", id))
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("user %d not listed", id)
	}
	return matchUser(f.updated(), users[0])
}

func (f *flow) deleteUser(ctx context.Context, st *scenario.State) error {
	id, err := f.userID(st)
	if err != nil {
		return err
	}
	resp, err := f.auth.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	return resp.Expect().StatusNoContent().Err()
}

func (f *flow) deletedUser(ctx context.Context, st *scenario.State) error {
	resp, err := f.auth.GetUser(ctx, f.id(st, "user_id"))
	if err != nil {
		return err
	}
	return f.expectNotFound(resp)
}

func expectEmpty[T any](items []T, err error) error {
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected an empty list, got %d items", len(items))
	}
	return nil
}

func (f *flow) emptyUsers(ctx context.Context, st *scenario.State) error {
	_, users, err := f.users(ctx, f.auth, gorest.Filter("id", f.id(st, "user_id")))
	return expectEmpty(users, err)
}

func (f *flow) emptyUserPosts(ctx context.Context, st *scenario.State) error {
	posts, err := f.posts(f.auth.ListUserPosts(ctx, f.id(st, "user_id"), gorest.ListOptions{}))
	return expectEmpty(posts, err)
}

func (f *flow) emptyPosts(ctx context.Context, st *scenario.State) error {
	posts, err := f.posts(f.auth.ListPosts(ctx, gorest.Filter("user_id", f.id(st, "user_id"))))
	return expectEmpty(posts, err)
}

func (f *flow) emptyPostComments(ctx context.Context, st *scenario.State) error {
	comments, err := f.comments(f.auth.ListPostComments(ctx, f.id(st, "post_id"), gorest.Filter("id", f.id(st, "comment_id"))))
	return expectEmpty(comments, err)
}

func (f *flow) emptyComments(ctx context.Context, st *scenario.State) error {
	comments, err := f.comments(f.auth.ListComments(ctx, gorest.Filter("post_id", f.id(st, "post_id"))))
	return expectEmpty(comments, err)
}

func (f *flow) emptyUserTodos(ctx context.Context, st *scenario.State) error {
	todos, err := f.todos(f.auth.ListUserTodos(ctx, f.id(st, "user_id"), gorest.ListOptions{}))
	return expectEmpty(todos, err)
}

func (f *flow) emptyTodos(ctx context.Context, st *scenario.State) error {
	todos, err := f.todos(f.auth.ListTodos(ctx, gorest.Filter("user_id", f.id(st, "user_id"))))
	return expectEmpty(todos, err)
}
