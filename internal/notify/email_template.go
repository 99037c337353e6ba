package notify

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Subject}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 640px;
      margin: 0 auto;
      background: #ffffff;
      border-radius: 8px;
      border: 1px solid #e5e7eb;
      overflow: hidden;
    }

    .header {
      padding: 20px 24px;
      background: linear-gradient(135deg, #12284c 0%, #1f3a68 100%);
      color: #ffffff;
    }

    .heading {
      font-size: 22px;
      font-weight: 700;
      margin-bottom: 4px;
    }

    .title {
      font-size: 15px;
      opacity: 0.9;
    }

    .count {
      display: inline-block;
      margin-top: 8px;
      padding: 4px 10px;
      font-size: 11px;
      font-weight: 600;
      border-radius: 4px;
      background: #0ea5e9;
      color: #ffffff;
      text-transform: uppercase;
      letter-spacing: 0.05em;
    }

    .section {
      padding: 16px 24px;
      border-top: 1px solid #f3f4f6;
    }

    .section-title {
      font-size: 11px;
      font-weight: 700;
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.1em;
      margin-bottom: 12px;
    }

    .meta-grid {
      display: table;
      width: 100%;
      font-size: 14px;
    }

    .meta-row {
      display: table-row;
    }

    .meta-label {
      display: table-cell;
      padding: 6px 16px 6px 0;
      color: #6b7280;
      font-weight: 500;
      white-space: nowrap;
      width: 100px;
    }

    .meta-value {
      display: table-cell;
      padding: 6px 0;
      color: #111827;
    }

    .keywords-list {
      display: flex;
      flex-wrap: wrap;
      gap: 6px;
      margin: 0;
      padding: 0;
      list-style: none;
    }

    .keyword-tag {
      display: inline-block;
      padding: 3px 10px;
      font-size: 12px;
      font-weight: 500;
      background: #e0f2fe;
      color: #0369a1;
      border-radius: 4px;
    }

    .summary-list,
    .match-list {
      margin: 0;
      padding-left: 20px;
      font-size: 14px;
    }

    .summary-list li,
    .match-list li {
      margin-bottom: 8px;
      padding-left: 4px;
    }


    .context-box {
      background: #f9fafb;
      border-left: 3px solid #12284c;
      padding: 12px 16px;
      font-size: 13px;
      color: #374151;
      border-radius: 0 4px 4px 0;
    }

    .cta-button {
      display: inline-block;
      margin-top: 12px;
      padding: 10px 20px;
      font-size: 14px;
      font-weight: 600;
      color: #ffffff !important;
      background: #12284c;
      border-radius: 6px;
      text-decoration: none;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
      background: #f9fafb;
      border-top: 1px solid #f3f4f6;
    }

    a {
      color: #0b3d91;
      text-decoration: none;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <div class="heading">{{.Subject}}</div>
      <div class="title">{{if not .GeneratedAt.IsZero}}{{.GeneratedAt.Format "02 Jan 2006 15:04"}}{{end}}</div>
      <span class="count">{{len .Matches}} eşleşme</span>
    </div>

    <div class="section">
      <div class="section-title">Yeni Duyurular</div>
      <ul class="match-list">
        {{range .Matches}}
        <li>
          {{if .Link}}<a href="{{.Link}}" target="_blank" rel="noopener">{{.Title}}</a>{{else}}{{.Title}}{{end}}
          {{if .KeywordsFound}}
          <div class="keywords-list">
            {{range .KeywordsFound}}
            <span class="keyword-tag">{{.}}</span>
            {{end}}
          </div>
          {{end}}
        </li>
        {{end}}
      </ul>
      {{if .SourceURL}}
      <a href="{{.SourceURL}}" class="cta-button" target="_blank" rel="noopener">
        Duyuru Listesini Aç →
      </a>
      {{end}}
    </div>

    {{if .Digest}}
      {{if .Digest.Summary}}
      <div class="section">
        <div class="section-title">AI Summary</div>
        <div class="context-box">
          {{range .Digest.Summary}}{{.}} {{end}}
        </div>
      </div>
      {{end}}

      {{if .Digest.Highlights}}
      <div class="section">
        <div class="section-title">Highlights</div>
        <div class="meta-grid">
          {{range .Digest.Highlights}}
          <div class="meta-row">
            <div class="meta-label">{{.Position}}</div>
            <div class="meta-value">{{.Title}}{{if .Deadline}} <strong>(son tarih: {{.Deadline}})</strong>{{end}}</div>
          </div>
          {{end}}
        </div>
      </div>
      {{end}}
    {{end}}

    <div class="footer">
      Generated by <a href="https://github.com/shanehull/annwatch" target="_blank" rel="noopener">annwatch</a>
    </div>
  </div>
</body>
</html>`
