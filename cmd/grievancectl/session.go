package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/theervu-kaanal/grievance-api/internal/adapters/filestore"
	"github.com/theervu-kaanal/grievance-api/internal/client"
	"github.com/theervu-kaanal/grievance-api/internal/token"
)

type sessionOptions struct {
	Origin      string
	SessionFile string
}

func (o *sessionOptions) register(fs *flag.FlagSet, defaultOrigin string) {
	fs.StringVar(&o.Origin, "origin", defaultOrigin, "API origin, e.g. http://localhost:8080")
	fs.StringVar(&o.SessionFile, "session-file", "", "session file path (default: per-user data dir)")
}

// newSession builds a SessionManager backed by the on-disk store and
// restores any persisted session.
func newSession(ctx *commandContext, opts sessionOptions) (*client.SessionManager, error) {
	path := opts.SessionFile
	if path == "" {
		var err error
		if path, err = filestore.DefaultPath(); err != nil {
			return nil, fmt.Errorf("resolve session file: %w", err)
		}
	}

	store, err := filestore.NewSessionStore(path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	mgr, err := client.NewSessionManager(client.Config{
		Origin: opts.Origin,
		Store:  store,
		Logger: ctx.Logger,
	})
	if err != nil {
		return nil, err
	}

	mgr.Initialize(ctx.Ctx)
	return mgr, nil
}

func runLogin(ctx *commandContext, args []string) error {
	fs := newFlagSet("login")
	var opts sessionOptions
	opts.register(fs, ctx.Config.HTTP.BaseURL)
	role := fs.String("role", "petitioner", "login role: petitioner, official, or admin")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prefer GRIEVANCE_PASSWORD)")
	department := fs.String("department", "", "department (official logins)")
	employeeID := fs.String("employee-id", "", "employee identifier (official logins, optional)")
	adminID := fs.String("admin-id", "", "admin identifier (admin logins)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return errors.New("-email is required")
	}
	pw := *password
	if pw == "" {
		pw = os.Getenv("GRIEVANCE_PASSWORD")
	}
	if pw == "" {
		return errors.New("password required via -password or GRIEVANCE_PASSWORD")
	}

	in := client.LoginInput{Email: *email, Password: pw}
	switch strings.ToLower(*role) {
	case "petitioner":
	case "official":
		if *department == "" {
			return errors.New("-department is required for official logins")
		}
		in.Department = *department
		in.EmployeeID = *employeeID
	case "admin":
		id := *adminID
		if id == "" {
			id = *email
		}
		in.AdminID = id
	default:
		return fmt.Errorf("unknown role %q (valid: petitioner, official, admin)", *role)
	}

	mgr, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer mgr.Close()

	result, err := mgr.Login(ctx.Ctx, in)
	if err != nil {
		var loginErr *client.LoginError
		if errors.As(err, &loginErr) {
			return fmt.Errorf("login rejected: %s", loginErr.Message)
		}
		return err
	}

	return writef(os.Stdout, "logged in as %s <%s> (%s)\nlanding: %s\n",
		result.Principal.Name(), result.Principal.Email, result.Role, result.LandingPath)
}

func runWhoami(ctx *commandContext, args []string) error {
	fs := newFlagSet("whoami")
	var opts sessionOptions
	opts.register(fs, ctx.Config.HTTP.BaseURL)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer mgr.Close()

	snap, ok := mgr.Snapshot()
	if !ok {
		return errors.New("no active session; run `grievancectl login` first")
	}

	expiresSoon := mgr.CheckExpiration()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", snap.Principal.ID)
	fmt.Fprintf(w, "email\t%s\n", snap.Principal.Email)
	fmt.Fprintf(w, "role\t%s\n", snap.Principal.Role)
	if snap.Principal.Department != "" {
		fmt.Fprintf(w, "department\t%s\n", snap.Principal.Department)
	}
	if claims, err := token.Decode(snap.Token); err == nil && claims.ExpiresAt > 0 {
		fmt.Fprintf(w, "expires\t%s\n", time.Unix(claims.ExpiresAt, 0).Format(time.RFC3339))
	}
	fmt.Fprintf(w, "expiring soon\t%v\n", expiresSoon)
	return w.Flush()
}

func runLogout(ctx *commandContext, args []string) error {
	fs := newFlagSet("logout")
	var opts sessionOptions
	opts.register(fs, ctx.Config.HTTP.BaseURL)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer mgr.Close()

	mgr.Logout(ctx.Ctx)
	return writef(os.Stdout, "logged out\n")
}

func runCall(ctx *commandContext, args []string) error {
	fs := newFlagSet("call")
	var opts sessionOptions
	opts.register(fs, ctx.Config.HTTP.BaseURL)
	method := fs.String("X", "", "HTTP method (default GET, or POST with -d)")
	data := fs.String("d", "", "JSON request body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: grievancectl call [flags] <path>")
	}
	path := fs.Arg(0)

	mgr, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer mgr.Close()

	reqOpts := client.RequestOptions{Method: *method}
	if *data != "" {
		var body json.RawMessage
		if err := json.Unmarshal([]byte(*data), &body); err != nil {
			return fmt.Errorf("parse -d body: %w", err)
		}
		reqOpts.JSON = body
	}

	resp, err := mgr.Fetch(ctx.Ctx, path, reqOpts)
	if err != nil {
		if errors.Is(err, client.ErrUnauthenticated) {
			return errors.New("not logged in; run `grievancectl login` first")
		}
		if errors.Is(err, client.ErrSessionExpired) {
			return errors.New("session expired; run `grievancectl login` again")
		}
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return writef(os.Stdout, "\n")
}
