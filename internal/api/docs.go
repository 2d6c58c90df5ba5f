package api

// docsHTML renders /openapi.json with Stoplight Elements. The SSE stream is
// not an OpenAPI operation, so it gets a note in the corner.
const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>Chart Window API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <div style="position: fixed; bottom: 12px; right: 16px; z-index: 9999; background: #161b22; border: 1px solid #30363d; border-radius: 6px; color: #8b949e; font: 12px -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; padding: 6px 12px;">
    Snapshots stream from <code style="color: #58a6ff;">GET /api/v1/events?sessions=id1,id2</code>
    as <code>snapshot</code>, <code>feed_status</code> and <code>session_closed</code> events.
  </div>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="stacked"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`
