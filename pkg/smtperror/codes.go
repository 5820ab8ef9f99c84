package smtperror

import "regexp"

// SMTP reply code tables
//
// AUTHENTICATION (checked before everything else, never retryable):
// - 530: Authentication required
// - 535: Authentication credentials invalid
//
// PERMANENT (rejections and protocol faults that cannot succeed on retry):
// - 501-504: Syntax / command errors
// - 521: Server does not accept mail
// - 550: Mailbox unavailable
// - 551: User not local
// - 552: Storage exceeded
// - 553: Mailbox name not allowed
// - 554: Transaction failed
//
// RATE LIMIT (retryable after a long wait; overlaps the temporary set and
// wins the overlap):
// - 421, 450, 451, 452, 454
//
// TEMPORARY (retryable after a short wait):
// - 421, 450, 451, 452, 455
//
// Changing any of these sets is a behavioral change; the classifier tests
// pin every member.
var (
	authCodes = map[int]bool{
		530: true,
		535: true,
	}

	permanentCodes = map[int]bool{
		501: true,
		502: true,
		503: true,
		504: true,
		521: true,
		530: true,
		550: true,
		551: true,
		552: true,
		553: true,
		554: true,
	}

	rateLimitCodes = map[int]bool{
		421: true,
		450: true,
		451: true,
		452: true,
		454: true,
	}

	temporaryCodes = map[int]bool{
		421: true,
		450: true,
		451: true,
		452: true,
		455: true,
	}
)

// Rate/quota phrases that mark a coded reply as throttling even when the
// code alone would read as a generic temporary failure.
var rateLimitPhrases = []string{
	"rate limit",
	"too many",
}

// Text fallback patterns, used only when a failure carries no reply code
// and no recognizable error type.
var (
	authTextPatterns = []string{
		"authentication",
		"login",
	}

	connectionTextPatterns = []string{
		"connection",
		"timeout",
	}

	rateTextPatterns = []string{
		"rate",
		"quota",
		"limit",
	}

	recipientTextPatterns = []string{
		"mailbox",
		"recipient",
		"not found",
	}
)

// Reply code extraction patterns
var (
	// Matches codes in raw server replies like "550 5.1.1 user unknown",
	// "421-try again later" or a trailing "... said: 452". The leading
	// boundary must be whitespace so that port numbers in addresses like
	// "10.0.0.1:587" never match.
	replyCodeRegex = regexp.MustCompile(`(?:\A|\s)([45]\d{2})(?:[\s\-:]|\z)`)

	// Matches annotated forms like "code: 550", "status 421"
	labeledCodeRegex = regexp.MustCompile(`(?i)(?:code|status)[:\s]+([45]\d{2})(?:\D|\z)`)
)
