package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/bitshala/guildgate/internal/gate/service"
)

// serverName appears in the email body and footer.
const serverName = "Bitshala"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome to {{.CohortName}}!</title>
</head>
<body style="margin:0; padding:0; background-color:#202124; font-family:Arial, sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" bgcolor="#202124">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" bgcolor="#272727"
               style="margin:30px 0; border-radius:8px; overflow:hidden; max-width:100%;">
          <tr>
            <td style="background-color:#000000; padding:20px; text-align:center;">
              <h1 style="color:#ffffff; margin:0; font-size:24px;">Welcome {{.Name}}!</h1>
              <h2 style="color:#FF9900; margin:10px 0 0 0; font-size:18px; font-weight:normal;">
                You've joined the {{.CohortName}}
              </h2>
            </td>
          </tr>
          <tr>
            <td style="padding:30px; color:#dddddd; font-size:16px; line-height:1.6;">
              <p style="margin-top:0;">We're thrilled to have you onboard!</p>
              <p>
                Connect with fellow Bitcoiners and developers in our
                <strong style="color:#FF9900;">{{.ServerName}} Discord community</strong>.
                This is where discussions, collaboration, and learning happen.
              </p>
              <div style="text-align:center; margin:30px 0;">
                <a href="{{.InviteURL}}"
                   style="background-color:#FF9900; color:#ffffff; text-decoration:none;
                          padding:15px 30px; border-radius:25px; display:inline-block;
                          font-size:16px; font-weight:bold;">
                  Join Discord Server
                </a>
              </div>
              <p style="font-size:14px; color:#999999; text-align:center; margin:20px 0 5px;">
                Having trouble with the button? Copy and paste this link:
              </p>
              <p style="font-size:12px; color:#FF9900; word-break:break-all; text-align:center;
                        margin:0; background-color:#1a1a1a; padding:10px; border-radius:4px;">
                {{.InviteURL}}
              </p>
            </td>
          </tr>
          <tr>
            <td style="background-color:#000000; padding:20px; text-align:center; font-size:12px; color:#777777;">
              <p style="margin:0;">
                Cheers,<br>
                <strong style="color:#FF9900;">The {{.ServerName}} Team</strong>
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

type welcomeData struct {
	Name       string
	CohortName string
	InviteURL  string
	ServerName string
}

// renderWelcome produces the subject line and HTML body for an invitation.
func renderWelcome(inv service.Invitation) (subject, html string, err error) {
	subject = fmt.Sprintf("Welcome to %s - Join our Discord!", inv.CohortName)

	var buf bytes.Buffer
	err = welcomeTmpl.Execute(&buf, welcomeData{
		Name:       inv.Name,
		CohortName: inv.CohortName,
		InviteURL:  inv.InviteURL,
		ServerName: serverName,
	})
	if err != nil {
		return "", "", fmt.Errorf("render welcome email: %w", err)
	}
	return subject, buf.String(), nil
}
