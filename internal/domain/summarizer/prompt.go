package summarizer

import "strings"

const (
	plainInstruction    = "\"\nExtract the main ideas of the text. Keep it short. For additional context here is the previous part and their main ideas: \n "
	timecodeInstruction = "\"\nExtract the time codes when the main ideas of the text. Keep it short. For additional context here is the previous time codes and their main ideas: \n "
	continuityMarker    = ". For"
)

func instructionFor(withTimecode bool) string {
	if withTimecode {
		return timecodeInstruction
	}
	return plainInstruction
}

// chunkPrompt quotes the chunk, appends the instruction and the previous
// chunk's summary as continuity context.
func chunkPrompt(chunk, instruction, previous string) string {
	return "\"" + chunk + instruction + previous
}

// finalPrompt re-summarizes the concatenated summary with the instruction cut
// before its continuity clause.
func finalPrompt(summary, instruction string) string {
	head, _, _ := strings.Cut(instruction, continuityMarker)
	return "\"" + summary + head
}
