package analyze

// systemInstruction steers the model toward a machine-readable reply. The
// deck text it accompanies is a sequence of "--- Slide N ---" sections as
// produced by the aggregate package.
const systemInstruction = `You are an expert presentation reviewer. Analyze the slide deck below for cross-slide inconsistencies. Slides are delimited by "--- Slide N ---" markers. Focus on these kinds:
1. numerical: conflicting numbers (revenue, percentages, statistics)
2. textual: contradictory claims or statements
3. timeline: mismatched dates, schedules, or forecasts
4. logical: reasoning flaws or contradictory conclusions

Respond ONLY with a JSON array of objects, each with exactly these keys:
- "kind": one of ["numerical", "textual", "timeline", "logical"]
- "slides": array of the slide numbers involved (1-indexed)
- "description": clear explanation of the inconsistency
- "confidence": float between 0.0 and 1.0

Only include findings with confidence > 0.5. Reference slide numbers explicitly in descriptions. If the deck has no inconsistencies, respond with an empty array [].`
