package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"subgen/client"
	"subgen/config"
	"subgen/session"
	"subgen/tui"
	"subgen/types"
	"subgen/workflow"
)

func main() {
	config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sess, err := openSession()
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	api := client.New(config.APIURL(), sess)

	switch os.Args[1] {
	case "signup":
		runSignup(api, sess, os.Args[2:])
	case "login":
		runLogin(api, sess, os.Args[2:])
	case "whoami":
		runWhoami(api, sess)
	case "logout":
		runLogout(api, sess)
	case "process":
		runProcess(api, sess, os.Args[2:])
	case "regenerate":
		runRegenerate(api, sess, os.Args[2:])
	case "status":
		runStatus(api, os.Args[2:])
	case "download":
		runDownload(api, os.Args[2:])
	case "dashboard":
		runDashboard(api, sess, os.Args[2:])
	case "languages":
		for _, lang := range config.SupportedLanguages() {
			fmt.Println(lang)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: subgen <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  signup      Create an account")
	fmt.Fprintln(os.Stderr, "  login       Authenticate and store the session")
	fmt.Fprintln(os.Stderr, "  whoami      Show the current session")
	fmt.Fprintln(os.Stderr, "  logout      Invalidate the stored session")
	fmt.Fprintln(os.Stderr, "  process     Upload a video and run the subtitle workflow")
	fmt.Fprintln(os.Stderr, "  regenerate  Re-render subtitles for the last upload")
	fmt.Fprintln(os.Stderr, "  status      Query processing status for a video")
	fmt.Fprintln(os.Stderr, "  download    Fetch a finished subtitled video")
	fmt.Fprintln(os.Stderr, "  dashboard   Run the interactive terminal dashboard")
	fmt.Fprintln(os.Stderr, "  languages   List supported target languages")
}

func openSession() (*session.Store, error) {
	path, err := session.DefaultPath()
	if err != nil {
		return nil, err
	}
	return session.Open(path)
}

func runSignup(api *client.Client, sess *session.Store, args []string) {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	fs.Parse(args)

	auth, err := api.Signup(context.Background(), *name, *email, *password)
	if err != nil {
		log.Fatalf("signup failed: %v", err)
	}
	if err := sess.SetSession(auth.AccessToken, auth.User); err != nil {
		log.Fatalf("failed to store session: %v", err)
	}
	fmt.Printf("Signed up as %s <%s>\n", auth.User.Name, auth.User.Email)
}

func runLogin(api *client.Client, sess *session.Store, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	fs.Parse(args)

	auth, err := api.Login(context.Background(), *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	if err := sess.SetSession(auth.AccessToken, auth.User); err != nil {
		log.Fatalf("failed to store session: %v", err)
	}
	fmt.Printf("Logged in as %s <%s>\n", auth.User.Name, auth.User.Email)
}

func runWhoami(api *client.Client, sess *session.Store) {
	if sess.Token() == "" {
		fmt.Println("Not logged in")
		return
	}
	user, err := api.Validate(context.Background())
	if err != nil {
		log.Fatalf("session invalid: %v", err)
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	if last := sess.LastUpload(); last != nil {
		fmt.Printf("Last upload: %s (%s)\n", last.Filename, last.VideoID)
	}
}

func runLogout(api *client.Client, sess *session.Store) {
	if err := api.Logout(context.Background()); err != nil {
		log.Printf("logout request failed: %v", err)
	}
	if err := sess.Clear(); err != nil {
		log.Fatalf("failed to clear session: %v", err)
	}
	fmt.Println("Logged out")
}

func runProcess(api *client.Client, sess *session.Store, args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	file := fs.String("file", "", "Path to the video file")
	lang := fs.String("lang", config.DefaultTargetLanguage, "Target subtitle language")
	font := fs.Int("font", config.DefaultFontSize, "Subtitle font size")
	fs.Parse(args)

	machine := newMachine(api)
	ctx := interruptContext()

	log.Printf("Uploading %s (target language %s, font size %d)", *file, *lang, *font)
	go logProgress(ctx, machine)

	url, err := machine.Start(ctx, *file, *lang, *font)
	if err != nil {
		log.Fatalf("workflow failed: %v", err)
	}
	st := machine.Snapshot()
	_ = sess.SetLastUpload(types.NewUploadDescriptor(st.VideoID, *file))
	fmt.Printf("Done. Download URL: %s\n", url)
}

func runRegenerate(api *client.Client, sess *session.Store, args []string) {
	fs := flag.NewFlagSet("regenerate", flag.ExitOnError)
	id := fs.String("id", "", "Video ID (defaults to the last upload)")
	lang := fs.String("lang", config.DefaultTargetLanguage, "Target subtitle language")
	font := fs.Int("font", config.DefaultFontSize, "Subtitle font size")
	fs.Parse(args)

	videoID := *id
	if videoID == "" {
		last := sess.LastUpload()
		if last == nil {
			log.Fatal("no video ID given and no previous upload recorded")
		}
		videoID = last.VideoID
	}

	status, err := api.Status(context.Background(), videoID)
	if err != nil {
		log.Fatalf("failed to fetch current subtitles: %v", err)
	}
	if len(status.Segments) == 0 {
		log.Fatal("video has no subtitle segments to re-render yet")
	}

	machine := newMachine(api)
	ctx := interruptContext()
	go logProgress(ctx, machine)

	url, err := machine.Regenerate(ctx, videoID, status.Segments, *font, *lang)
	if err != nil {
		log.Fatalf("regenerate failed: %v", err)
	}
	fmt.Printf("Done. Download URL: %s\n", url)
}

func runStatus(api *client.Client, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "Video ID")
	fs.Parse(args)

	status, err := api.Status(context.Background(), *id)
	if err != nil {
		log.Fatalf("status request failed: %v", err)
	}
	fmt.Printf("Status:   %s\n", status.Status)
	fmt.Printf("Progress: %d%%\n", status.Progress)
	if status.Error != "" {
		fmt.Printf("Error:    %s\n", status.Error)
	}
	if len(status.Segments) > 0 {
		fmt.Printf("Segments: %d\n", len(status.Segments))
	}
	if status.DownloadURL != "" {
		fmt.Printf("Download: %s\n", status.DownloadURL)
	}
}

func runDownload(api *client.Client, args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	id := fs.String("id", "", "Video ID")
	out := fs.String("out", "", "Output path (default subtitled_<id>.mp4)")
	fs.Parse(args)

	dst := *out
	if dst == "" {
		dst = "subtitled_" + *id + ".mp4"
	}
	if err := api.Download(context.Background(), *id, dst); err != nil {
		log.Fatalf("download failed: %v", err)
	}
	fmt.Printf("Saved %s\n", dst)
}

func runDashboard(api *client.Client, sess *session.Store, args []string) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	file := fs.String("file", "", "Path to the video file")
	lang := fs.String("lang", config.DefaultTargetLanguage, "Target subtitle language")
	font := fs.Int("font", config.DefaultFontSize, "Subtitle font size")
	fs.Parse(args)

	machine := newMachine(api)
	m := tui.NewModel(machine, api, sess, *file, strings.ToLower(*lang), *font)
	program := tea.NewProgram(m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}

func newMachine(api *client.Client) *workflow.Machine {
	return workflow.NewMachine(workflow.ClientTransport{Client: api}, workflow.Config{})
}

// interruptContext cancels on SIGINT/SIGTERM so an aborted run tears the
// stream down instead of leaking the connection.
func interruptContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx
}

// logProgress mirrors machine logs to stderr for the headless commands.
func logProgress(ctx context.Context, machine *workflow.Machine) {
	seen := 0
	ticker := time.NewTicker(config.DashboardTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logs := machine.Logs()
			for ; seen < len(logs); seen++ {
				log.Printf("  %s", logs[seen].Message)
			}
		}
	}
}
