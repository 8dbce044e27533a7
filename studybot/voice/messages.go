package voice

import "fmt"

func welcomeText(displayName string, minutesLeft int, coins int64) string {
	return fmt.Sprintf("Welcome %s! Every full hour in voice converts into 1 coin.\n"+
		"**%d** minutes left until your next reward.\n"+
		"You have earned %d coins this session.", displayName, minutesLeft, coins)
}

func switchText(displayName, channelName string, minutesLeft int, coins int64) string {
	return fmt.Sprintf("%s moved to **%s** - your progress carries over!\n"+
		"**%d** minutes left until your next reward.\n"+
		"You have earned %d coins this session.", displayName, channelName, minutesLeft, coins)
}

func countdownText(displayName string, minutesLeft int, coins int64) string {
	return fmt.Sprintf("Keep going %s! **%d** minutes left until your next reward.\n"+
		"You have earned %d coins this session.", displayName, minutesLeft, coins)
}

func completionText(displayName string, sessionNumber int) string {
	return fmt.Sprintf("%s +1 coin! Session %d starts now.", displayName, sessionNumber)
}

func breakWarningText(displayName string) string {
	return fmt.Sprintf("%s you have been studying for 3h30m - remember to take a break soon!", displayName)
}

func fourHourText(displayName string, coins int64, totalMinutes int) string {
	return fmt.Sprintf("%s you have hit the 4 hour mark with %d coins earned (%dh%02dm total). Time to wind down!",
		displayName, coins, totalMinutes/60, totalMinutes%60)
}

func kickText(displayName string) string {
	return fmt.Sprintf("%s has studied past the safety cap and will be disconnected. Rest well!", displayName)
}
