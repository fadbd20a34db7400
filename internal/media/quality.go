package media

import "strings"

const maxFlagsScore = 10

// QualityScore ranks a parsed release; higher is better. Resolution weighs
// most, then source, codec and the proper/repack flags.
func QualityScore(g Guess) int {
	return scoreResolution(g.Resolution) + scoreSource(g.Source) + scoreCodec(g.Codec) + scoreFlags(g.Proper, g.Repack)
}

// ResolutionRank orders resolutions for minimum-resolution filtering. Unknown
// resolutions rank lowest.
func ResolutionRank(resolution string) int {
	switch scoreResolution(resolution) {
	case 40:
		return 4
	case 30:
		return 3
	case 20:
		return 2
	case 10:
		return 1
	default:
		return 0
	}
}

func scoreResolution(resolution string) int {
	normalized := strings.ToUpper(resolution)
	switch {
	case strings.Contains(normalized, "2160P") || strings.Contains(normalized, "4K"):
		return 40
	case strings.Contains(normalized, "1080P"):
		return 30
	case strings.Contains(normalized, "720P"):
		return 20
	case strings.Contains(normalized, "576P") || strings.Contains(normalized, "480P"):
		return 10
	default:
		return 5
	}
}

func scoreSource(source string) int {
	normalized := strings.ToUpper(source)
	switch {
	case strings.Contains(normalized, "REMUX"):
		return 30
	case strings.Contains(normalized, "BLURAY") || strings.Contains(normalized, "BDRIP"):
		return 25
	case strings.Contains(normalized, "WEB-DL"):
		return 20
	case strings.Contains(normalized, "WEBRIP"):
		return 15
	case strings.Contains(normalized, "HDTV"):
		return 10
	default:
		return 5
	}
}

func scoreCodec(codec string) int {
	normalized := strings.ToUpper(codec)
	switch {
	case strings.Contains(normalized, "X265") || strings.Contains(normalized, "HEVC"):
		return 20
	case strings.Contains(normalized, "X264") || strings.Contains(normalized, "AVC"):
		return 15
	case strings.Contains(normalized, "XVID"):
		return 10
	default:
		return 5
	}
}

func scoreFlags(proper, repack bool) int {
	score := 0
	if proper {
		score += 5
	}
	if repack {
		score += 5
	}
	if score > maxFlagsScore {
		return maxFlagsScore
	}
	return score
}
