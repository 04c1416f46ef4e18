// Package bot – message formatting
//
// This file builds every user-facing text the bot sends. Texts are markdown;
// dynamic values pass through EscapeMarkdown so member-controlled strings
// cannot break the markup.
package bot

import (
	"fmt"
	"strings"

	"github.com/docsanddecks/attendance-bot/internal/utils"
)

// maxMessageLen is the platform's message size ceiling. Catalog listings are
// chunked at line boundaries to stay under it.
const maxMessageLen = 4096

var markdownEscaper = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`,
	"(", `\(`, ")", `\)`, "~", `\~`, "`", "\\`",
	">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`,
	".", `\.`, "!", `\!`,
)

// EscapeMarkdown escapes markdown control characters in text.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// Mention renders a clickable member mention.
func Mention(name string, identity int64) string {
	return fmt.Sprintf("[%s](tg://user?id=%d)", EscapeMarkdown(name), identity)
}

func greetingText(botName string) string {
	return fmt.Sprintf("Welcome to the %s!\n"+
		"I mark your attendance during sessions.\n"+
		"In order to properly track your attendance, *please ensure your profile first name and last name reflect the actual name* you used in registering for the program!", botName)
}

func welcomeText(mention string) string {
	return fmt.Sprintf("✅ Welcome, %s!", mention)
}

func nameWarningText(mention string) string {
	return fmt.Sprintf("⚠️ Hi %s, we couldn't find you in our registered records.\n\n"+
		"📝 *Please update your profile name* to match the name you used in registration (*First Name & Last Name*).\n\n"+
		"⏳ You have *5 minutes* to update it, or you will be removed automatically!", mention)
}

func nameVerifiedText(mention string) string {
	return fmt.Sprintf("✅ Thank you, %s! 🎉\n\nYour name is now correct.", mention)
}

func removedText(mention string) string {
	return fmt.Sprintf("🚨 %s was removed for *not updating their name*.\n\n"+
		"💡 Please update your name before rejoining the group.", mention)
}

func paymentGateText(mention string) string {
	return fmt.Sprintf("🚫 Hi %s, you are not in our registered records.\n\n"+
		"To join, please validate your payment using /validate_me <your payment reference>.\n\n"+
		"If you believe this is a mistake, contact support.", mention)
}

const (
	alreadyLinkedText  = "✅ You are a valid member and your profile is already linked!"
	linkedNowText      = "🔄 Your profile was linked successfully! You are now a valid member."
	noMatchText        = "⚠️ We couldn't find you in our registered records.\n\n" +
		"📝 *Please update your profile name* to match the name you used in registration (*First Name & Last Name*) and try again."
	askReferenceText   = "💬 Please reply with your payment reference."
	badReferenceText   = "❌ Payment reference not found. Please check and try again."
	linkFailedText     = "⚠️ Could not link your profile. Please contact support."
	attendancePrompt   = "Please mark your attendance"
	sessionOpenText    = "Please close the current attendance first"
	notLinkedMarkText  = "Error marking attendance. Seems like your profile is yet to be linked. Please use /validate_me to link it and try again"
	alreadyMarkedText  = "Your attendance is already marked"
	adminOnlyText      = "This command can be executed by admin only"
	scoreNotLinkedText = "⚠️ Your profile is not linked, so we can't retrieve your score.\n👉 Run /validate_me to link it."
	scoreNoEmailText   = "⚠️ No email found for your profile, so we can't fetch your score."
	scoreNoDataText    = "⚠️ No score data found for you."
)

func paymentLinkedText(groupLink string) string {
	return fmt.Sprintf("✅ Payment validated and your profile is linked!\n\nHere is your group link: %s", groupLink)
}

func markedText(position, marks int) string {
	return fmt.Sprintf("You are the #%d to mark attendance.\nScore: %d marks", position, marks)
}

func attendanceOverText(count int) string {
	return fmt.Sprintf("Attendance is over.\n%d participants marked attendance.", count)
}

// formatResources renders the resource rows, chunked under the message
// ceiling.
func formatResources(rows []map[string]string) []string {
	if len(rows) == 0 {
		return []string{"📌 No resources available at the moment."}
	}
	lines := []string{"📚 *List of all resources*", ""}
	for _, r := range rows {
		lines = append(lines,
			fmt.Sprintf("📌 *%s*", EscapeMarkdown(r["Title"])),
			fmt.Sprintf("🔗 [%s link](%s)", EscapeMarkdown(r["Location"]), r["Link"]),
			"")
	}
	return utils.ChunkLines(lines, maxMessageLen)
}

// formatRecordings renders the session-recording rows.
func formatRecordings(rows []map[string]string) []string {
	if len(rows) == 0 {
		return []string{"📌 No session recordings available at the moment."}
	}
	lines := []string{"📚 *List of all session recording links*", ""}
	for _, r := range rows {
		lines = append(lines,
			fmt.Sprintf("📌 *%s*", EscapeMarkdown(r["Title"])),
			fmt.Sprintf("🔗 [Go to Video](%s)", r["Link"]),
			"")
	}
	return utils.ChunkLines(lines, maxMessageLen)
}

// formatAssignments renders the assignment rows. Scores are included when
// lookup is non-nil; a nil lookup means the caller's profile is not linked.
func formatAssignments(rows []map[string]string, lookup func(sheet string) (string, bool)) []string {
	if len(rows) == 0 {
		return []string{"📌 No assignments available at the moment."}
	}
	lines := []string{"📚 *List of all assignments*", ""}
	for _, a := range rows {
		lines = append(lines,
			fmt.Sprintf("📌 *%s: %s*", EscapeMarkdown(a["Date"]), EscapeMarkdown(a["Title"])),
			fmt.Sprintf("_Due on %s | [View Assignment](%s)_", EscapeMarkdown(a["Deadline"]), a["Submission link"]),
		)
		switch {
		case lookup == nil:
			lines = append(lines, "❌ *Score:* Not available")
		default:
			score, ok := lookup(strings.TrimSpace(a["Sheet"]))
			mark := "❌"
			if ok {
				mark = "✅"
			}
			lines = append(lines, fmt.Sprintf("%s *Score:* %s/%s", mark, EscapeMarkdown(score), EscapeMarkdown(a["Score"])))
		}
		lines = append(lines, "")
	}
	if lookup == nil {
		lines = append(lines,
			"⚠️ _Your profile is not linked, so you can't see your scores._",
			"👉 _Run /validate\\_me to link your profile and access your scores._",
			"")
	}
	lines = append(lines, "⚠️ *Late submissions result in half marks.*")
	return utils.ChunkLines(lines, maxMessageLen)
}

// formatOverallScore renders the overall-score row.
func formatOverallScore(rec map[string]string) string {
	get := func(k string) string {
		if v := rec[k]; v != "" {
			return v
		}
		return "N/A"
	}
	eligible := get("status") == "Eligible"
	mark := "❌"
	closing := "💡 You need at least 50% to be eligible! Don't give up! Attend sessions, do your assignments well, and you'll improve. You can do this! 💪"
	if eligible {
		mark = "✅"
		closing = "🎉 Congratulations! You are currently up to the certification requirements. Keep up the great work! 🚀"
	}
	var b strings.Builder
	b.WriteString("📊 *Your Overall Score*\n\n")
	fmt.Fprintf(&b, "👤 *Name:* %s\n", EscapeMarkdown(get("Full Name")))
	fmt.Fprintf(&b, "📋 *Overall Attendance:* %s\n", EscapeMarkdown(get("Attendance")))
	fmt.Fprintf(&b, "🔢 *Total Score:* %s / %s\n", EscapeMarkdown(get("sum")), EscapeMarkdown(get("total_score")))
	fmt.Fprintf(&b, "%s *Certification Status:* %s\n\n", mark, EscapeMarkdown(get("status")))
	b.WriteString(closing)
	return b.String()
}
